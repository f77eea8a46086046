package rewrite

import (
	"sort"
	"strconv"
	"strings"
)

// Rules names the identifiers the rewrite engine keys on.
type Rules struct {
	// Builder is the callee whose function-literal argument is rewritten.
	Builder string
	// Promote is the single-argument constructor that turns a literal into a
	// chain-startable builder value.
	Promote string
	// Intrinsic is the namespace whose members keep native operators.
	Intrinsic string

	// ConditionArgs lists, per callee name, the argument positions that are
	// always rewritten with forced context. A callee matches by identifier
	// name or by the property name of a member callee.
	ConditionArgs map[string][]int

	// Methods are output-API methods beyond the operator table whose calls
	// mark an operand as a builder value.
	Methods []string
	// Constructors are calls that produce builder values.
	Constructors []string
}

// DefaultRules returns the rules for three.js shading language sources.
func DefaultRules() *Rules {
	return &Rules{
		Builder:   "Fn",
		Promote:   "float",
		Intrinsic: "Math",
		ConditionArgs: map[string][]int{
			"select":  {0},
			"cond":    {0},
			"If":      {0},
			"ElseIf":  {0},
			"discard": {0},
			"mix":     {2},
		},
		Constructors: []string{
			"float", "int", "uint", "bool",
			"vec2", "vec3", "vec4",
			"ivec2", "ivec3", "ivec4",
			"uvec2", "uvec3", "uvec4",
			"bvec2", "bvec3", "bvec4",
			"mat2", "mat3", "mat4",
			"color", "uniform",
		},
	}
}

var arithmeticMethods = map[string]string{
	"+": "add",
	"-": "sub",
	"*": "mul",
	"/": "div",
	"%": "mod",
}

var assignMethods = map[string]string{
	"+=": "addAssign",
	"-=": "subAssign",
	"*=": "mulAssign",
	"/=": "divAssign",
	"%=": "modAssign",
}

var comparisonMethods = map[string]string{
	">":   "greaterThan",
	"<":   "lessThan",
	">=":  "greaterThanEqual",
	"<=":  "lessThanEqual",
	"==":  "equal",
	"===": "equal",
	"!=":  "notEqual",
	"!==": "notEqual",
}

var logicalMethods = map[string]string{
	"&&": "and",
	"||": "or",
}

const notMethod = "not"

// tables is the lookup form of Rules used during a rewrite.
type tables struct {
	methods       map[string]bool
	constructors  map[string]bool
	conditionArgs map[string]map[int]bool
}

func (r *Rules) tables() tables {
	t := tables{
		methods:       map[string]bool{notMethod: true},
		constructors:  map[string]bool{},
		conditionArgs: map[string]map[int]bool{},
	}
	for _, table := range []map[string]string{arithmeticMethods, assignMethods, comparisonMethods, logicalMethods} {
		for _, m := range table {
			t.methods[m] = true
		}
	}
	for _, m := range r.Methods {
		t.methods[m] = true
	}
	for _, c := range r.Constructors {
		t.constructors[c] = true
	}
	if r.Promote != "" {
		t.constructors[r.Promote] = true
	}
	for name, idx := range r.ConditionArgs {
		set := map[int]bool{}
		for _, i := range idx {
			set[i] = true
		}
		t.conditionArgs[name] = set
	}
	return t
}

// Fingerprint returns a stable textual form of the rules, suitable for
// hashing into cache keys.
func (r *Rules) Fingerprint() string {
	names := make([]string, 0, len(r.ConditionArgs))
	for name := range r.ConditionArgs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(r.Builder + "|" + r.Promote + "|" + r.Intrinsic + "|")
	for _, name := range names {
		idx := append([]int(nil), r.ConditionArgs[name]...)
		sort.Ints(idx)
		b.WriteString(name)
		for _, i := range idx {
			b.WriteString(":" + strconv.Itoa(i))
		}
		b.WriteString(";")
	}
	b.WriteString("|" + sortedList(r.Methods))
	b.WriteString("|" + sortedList(r.Constructors))
	return b.String()
}

func sortedList(list []string) string {
	out := append([]string(nil), list...)
	sort.Strings(out)
	return strings.Join(out, ",")
}
