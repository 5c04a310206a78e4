package maple

// sentinel is the Go stand-in for the kernel's reserved tagged-pointer
// values (spec.md §6: "values whose low two bits are 10 ... are reserved
// as internal sentinels"). Go's interface{} values carry no such bit
// pattern, so reservation is instead a fixed, small set of package-level
// marker values that a caller can never have constructed themselves —
// comparing a stored Value against them by identity is the Go-idiomatic
// equivalent of the kernel's low-bit test (SPEC_FULL.md §D).
type sentinel struct{ name string }

var (
	sentinelRetry  = &sentinel{"retry"}
	sentinelBounds = &sentinel{"bounds"}
)

func isReserved(v Value) bool {
	s, ok := v.(*sentinel)
	return ok && s != nil
}
