package vizierpb

import "google.golang.org/protobuf/types/known/anypb"

// KeyValue is one metadata entry attached to a study, trial, or study
// spec. On the wire it is a three-field message with a two-way union:
//
//	key   string              tag 1
//	value string              tag 2  (plain-string variant)
//	proto google.protobuf.Any tag 3  (typed-payload variant)
//	ns    string              tag 4
//
// A well-formed message sets exactly one of the two union variants.
// The union is modeled as two optional fields rather than an interface
// so decoders can observe, and reject, a message that violates the
// invariant. The empty namespace is caller-writable; every other
// namespace is reserved for the service.
type KeyValue struct {
	Key   string
	Value *string
	Proto *anypb.Any
	Ns    string
}
