package dht

import "fmt"

func errInvalidCompactLen(recLen, got int) error {
	return fmt.Errorf("dht: compact node list length must be a multiple of %d, got %d", recLen, got)
}

var errNotADict = fmt.Errorf("dht: krpc message is not a dict")

func errMissingField(field string) error {
	return fmt.Errorf("dht: krpc message missing field %q", field)
}

func errMalformedField(field string) error {
	return fmt.Errorf("dht: krpc message field %q is malformed", field)
}

func errUnknownMsgKind(y string) error {
	return fmt.Errorf("dht: krpc message has unknown y field %q", y)
}

func errUnknownQueryMethod(q string) error {
	return fmt.Errorf("dht: krpc query has unknown method %q", q)
}
