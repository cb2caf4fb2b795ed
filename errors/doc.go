// Package errors provides the error taxonomy shared by the dependency
// injection contract and its adapters.
//
// Every failure surfaced by registration, resolution or scope handling is an
// *AppError carrying a machine-readable ErrorCode. Callers branch on the code
// (see CodeOf and the Is* helpers) and reach the underlying cause through the
// standard errors.Is / errors.As chain.
package errors
