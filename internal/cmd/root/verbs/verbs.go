package verbs

const (
	Start    = VerbValue("start")
	Complete = VerbValue("complete")
	Cancel   = VerbValue("cancel")
	Status   = VerbValue("status")
	Watch    = VerbValue("watch")
	Version  = VerbValue("version")
	Profile  = VerbValue("profile")
)

// Empty type to represent the _type_ Verb. Genesis is to support a key in a Context
type VerbKey struct{}

// Verb is a global instance of the VerbKey type
var Verb = VerbKey{}

// Will represent a specific Verb (start, complete, cancel, etc)
type VerbValue string

func (v VerbValue) String() string {
	return string(v)
}
