package schema

// Validator checks a value at a trust boundary, such as a graph's initial state
// or a tool's decoded arguments. It returns the accepted value, possibly
// normalized, or an error describing why it was rejected.
type Validator[S any] interface {
	Validate(S) (S, error)
}

// Func adapts a plain function to Validator.
type Func[S any] func(S) (S, error)

func (f Func[S]) Validate(v S) (S, error) { return f(v) }

// Describer is implemented by validators that can describe their accepted input as JSON Schema.
type Describer interface {
	JSONSchema() map[string]any
}

var (
	_ Validator[map[string]any] = Schema(nil)
	_ Describer                 = Schema(nil)
)
