package vm

// OperatorID identifies a dispatch point resolvable per type.
type OperatorID uint16

// Regular operators. The numbering is dense so operator-cache buckets can
// be indexed by id / opcBucketSize.
const (
	OpConstructor OperatorID = iota
	OpCopy
	OpDeepCopy
	OpDestructor
	OpAssign
	OpMoveAssign
	OpStr
	OpRepr
	OpBool
	OpCall
	OpHash
	OpIter
	OpNext
	OpInt
	OpFloat
	OpInv
	OpPos
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpPow
	OpInc
	OpDec
	OpInplaceAdd
	OpInplaceSub
	OpInplaceMul
	OpInplaceDiv
	OpEq
	OpNe
	OpLo
	OpLe
	OpGr
	OpGe
	OpSize
	OpContains
	OpGetItem
	OpDelItem
	OpSetItem
	OpGetRange
	OpDelRange
	OpSetRange
	OpGetAttr
	OpDelAttr
	OpSetAttr
	OpEnumAttr
	OpEnter
	OpLeave

	// OpSuperArgs is class-only: it computes the arguments forwarded to the
	// base class constructor.
	OpSuperArgs

	opCount
)

// opInvalid marks empty operator-binding table entries. Zero is a valid
// operator id, so the sentinel sits at the top of the range.
const opInvalid OperatorID = 0xffff

var operatorNames = [opCount]string{
	OpConstructor: "this",
	OpCopy:        "copy",
	OpDeepCopy:    "deepcopy",
	OpDestructor:  "~this",
	OpAssign:      ":=",
	OpMoveAssign:  "move:=",
	OpStr:         "str",
	OpRepr:        "repr",
	OpBool:        "bool",
	OpCall:        "()",
	OpHash:        "hash",
	OpIter:        "iter",
	OpNext:        "next",
	OpInt:         "int",
	OpFloat:       "float",
	OpInv:         "~",
	OpPos:         "pos",
	OpNeg:         "neg",
	OpAdd:         "+",
	OpSub:         "-",
	OpMul:         "*",
	OpDiv:         "/",
	OpMod:         "%",
	OpShl:         "<<",
	OpShr:         ">>",
	OpAnd:         "&",
	OpOr:          "|",
	OpXor:         "^",
	OpPow:         "**",
	OpInc:         "++",
	OpDec:         "--",
	OpInplaceAdd:  "+=",
	OpInplaceSub:  "-=",
	OpInplaceMul:  "*=",
	OpInplaceDiv:  "/=",
	OpEq:          "==",
	OpNe:          "!=",
	OpLo:          "<",
	OpLe:          "<=",
	OpGr:          ">",
	OpGe:          ">=",
	OpSize:        "#",
	OpContains:    "contains",
	OpGetItem:     "[]",
	OpDelItem:     "del[]",
	OpSetItem:     "[]=",
	OpGetRange:    "[:]",
	OpDelRange:    "del[:]",
	OpSetRange:    "[:]=",
	OpGetAttr:     ".",
	OpDelAttr:     "del.",
	OpSetAttr:     ".=",
	OpEnumAttr:    "enumattr",
	OpEnter:       "enter",
	OpLeave:       "leave",
	OpSuperArgs:   "superargs",
}

// String returns the operator's source-level name.
func (op OperatorID) String() string {
	if op < opCount {
		return operatorNames[op]
	}
	return "<invalid operator>"
}

// Valid reports whether op names a known operator.
func (op OperatorID) Valid() bool {
	return op < opCount
}

// OperatorByName returns the operator with the given source-level name.
func OperatorByName(name string) (OperatorID, bool) {
	for i, n := range operatorNames {
		if n == name {
			return OperatorID(i), true
		}
	}
	return opInvalid, false
}

// inConstructorGroup reports whether op is invoked with per-call-site
// arguments that differ by inheritance level. Those operators are never
// cached on a descendant.
func (op OperatorID) inConstructorGroup() bool {
	switch op {
	case OpCopy, OpDeepCopy, OpAssign, OpMoveAssign, OpSuperArgs:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Operator sources
// ---------------------------------------------------------------------------

// SourceKind says where a class gets an operator from.
type SourceKind uint8

const (
	// SourceNone: neither the class nor its ancestors implement it.
	SourceNone SourceKind = iota
	// SourceDirect: the class binds the operator itself.
	SourceDirect
	// SourceInherited: a class ancestor binds it.
	SourceInherited
	// SourceDefault: a generated default implementation is installed.
	SourceDefault
)

// DefaultKind names a generated default implementation.
type DefaultKind uint8

const (
	DefaultNone DefaultKind = iota
	// DefaultMemberwiseCopy copies every bound member reference.
	DefaultMemberwiseCopy
	// DefaultMemberwiseDeepCopy deep-copies every bound member.
	DefaultMemberwiseDeepCopy
	// DefaultMemberwiseAssign replaces members with the other instance's.
	DefaultMemberwiseAssign
	// DefaultAutoInit binds constructor arguments to members.
	DefaultAutoInit
	// DefaultForward forwards constructor arguments to the base.
	DefaultForward
)

var defaultKindNames = [...]string{
	DefaultNone:               "none",
	DefaultMemberwiseCopy:     "memberwise-copy",
	DefaultMemberwiseDeepCopy: "memberwise-deepcopy",
	DefaultMemberwiseAssign:   "memberwise-assign",
	DefaultAutoInit:           "auto-init",
	DefaultForward:            "forward",
}

func (k DefaultKind) String() string {
	if int(k) < len(defaultKindNames) {
		return defaultKindNames[k]
	}
	return "unknown"
}

// OperatorSource is decided once at class creation and stored as data.
type OperatorSource struct {
	Kind    SourceKind
	Owner   *Type       // declaring class for SourceDirect/SourceInherited
	Default DefaultKind // for SourceDefault
}

func (s OperatorSource) String() string {
	switch s.Kind {
	case SourceDirect:
		return "direct"
	case SourceInherited:
		return "inherited from " + s.Owner.Name
	case SourceDefault:
		return "default " + s.Default.String()
	}
	return "none"
}
