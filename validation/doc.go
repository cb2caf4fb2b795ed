// Package validation validates configuration values.
//
// Struct tag validation uses go-playground/validator with field names taken
// from mapstructure tags, so messages name the keys a user writes in
// config files. Rules that span several fields are checked with the
// collecting Validator. Both report *errors.AppError with code
// INVALID_ARGUMENT and per-field details.
//
//	type Section struct {
//	    Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
//	}
//	err := validation.Validate(section)
package validation
