package symbol

// AnonRowName is the variable used to store a row that's not a struct. For a
// struct, each field becomes a separate variable.
const AnonRowName = "_"

// AnonAccName and AnonValName are passed to the reduce combiner.
const AnonAccName = "_acc"
const AnonValName = "_val"

var (
	// List of frequently used symbols, interned once at startup so that
	// hot-path lookups (argument binding, field access) never hit the slow
	// path in Intern.
	Default = Intern("default")
	Key     = Intern("key")
	Length  = Intern("length")
	Map     = Intern("map")
	Name    = Intern("name")
	Path    = Intern("path")
	Row     = Intern("row")
	Type    = Intern("type")
	Value   = Intern("value")
	Mode    = Intern("mode")

	// Scope namespace-import keywords.
	All = Intern("*")

	// Pipe/command well-known field names.
	Stdin  = Intern("stdin")
	Stdout = Intern("stdout")
	Stderr = Intern("stderr")
	Status = Intern("status")

	AnonRow = Intern(AnonRowName)
	AnonAcc = Intern(AnonAccName)
	AnonVal = Intern(AnonValName)
)
