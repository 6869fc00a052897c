package scpi

// ParameterType enumerates the parameter kinds of §3/§4.8.
type ParameterType uint8

const (
	TypeString ParameterType = iota
	TypeNumber
	TypeBoolean
	TypeEnum
	TypeArbitraryData
	TypeInvalid
)

var parameterTypeNames = [...]string{
	"string", "number", "boolean", "enum", "arbitrary-data", "invalid",
}

func (t ParameterType) String() string {
	if int(t) < len(parameterTypeNames) {
		return parameterTypeNames[t]
	}
	return "invalid"
}

// ParameterValue is the coerced result of §4.8. Only the field matching
// Type is meaningful; a Type of TypeInvalid means coercion failed and no
// other field should be read.
type ParameterValue struct {
	Type    ParameterType
	Number  float64
	Boolean bool
	Text    string // STRING and ENUM payload
	Data    []byte // ARBITRARY_DATA payload
}

// ParameterDescriptor describes one declared command parameter: its type,
// and (for ENUM) the set of accepted choices.
type ParameterDescriptor struct {
	Type    ParameterType
	Choices []string
}

// Handler is invoked once a command's parameters have all been validated
// and coerced; the interpreter guarantees len(values) == len(descriptor
// parameters) and every value's Type is not TypeInvalid.
type Handler func(values []ParameterValue, interp *Interpreter)

// CommandDescriptor binds a mnemonic to its parameter shape and handler.
// Name uses the mixed-case convention NewTrie expects.
type CommandDescriptor struct {
	Name       string
	Parameters []ParameterDescriptor
	Handler    Handler
}

// CommandTable bundles a built Trie with the CommandDescriptor slice it
// indexes into, the pair an Interpreter needs.
type CommandTable struct {
	Trie     *Trie
	Commands []CommandDescriptor
}

// BuildCommandTable constructs the trie for commands and returns both
// together, ready for NewInterpreter.
func BuildCommandTable(commands []CommandDescriptor) CommandTable {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}
	return CommandTable{Trie: NewTrie(names), Commands: commands}
}
