// Package ditest holds the conformance suite every di.Adapter must pass.
//
// An adapter package runs it from its own tests:
//
//	func TestConformance(t *testing.T) {
//	    ditest.Run(t, func(t *testing.T) di.Adapter {
//	        return digadapter.New()
//	    })
//	}
package ditest
