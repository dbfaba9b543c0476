package ir

import "kestrel/internal/symbols"

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtAssign
	StmtWhile
	StmtIf
	StmtFor
	StmtPrint
	StmtReturn
	StmtEval
)

func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "assign"
	case StmtWhile:
		return "while"
	case StmtIf:
		return "if"
	case StmtFor:
		return "for"
	case StmtPrint:
		return "print"
	case StmtReturn:
		return "return"
	case StmtEval:
		return "eval"
	default:
		return "invalid"
	}
}

// Stmt is a statement. Statements form a tree; only expressions are shared.
type Stmt struct {
	Kind StmtKind

	// Assign writes Value into Target. Print, Return and Eval use Value only.
	Target LvalueID
	Value  ExprID

	// While and If.
	Cond ExprID
	Body Block
	Else *Block

	// For binds Var to each integer of [From, To] (counting down when
	// Reverse is set) or, when To is absent, to each element of the array
	// From evaluates to.
	Var     symbols.SymbolID
	From    ExprID
	To      ExprID
	Reverse bool
}

// Block is an ordered sequence of statements and local declarations.
type Block struct {
	Items []BlockItem
}

// BlockItem holds exactly one of Decl or Stmt.
type BlockItem struct {
	Decl *LocalDecl
	Stmt *Stmt
}

// LocalDecl introduces a local variable, optionally initialized.
type LocalDecl struct {
	Sym  symbols.SymbolID
	Init ExprID
}

// Assign builds an assignment statement.
func Assign(target LvalueID, value ExprID) *Stmt {
	return &Stmt{Kind: StmtAssign, Target: target, Value: value}
}

// While builds a pre-tested loop.
func While(cond ExprID, body Block) *Stmt {
	return &Stmt{Kind: StmtWhile, Cond: cond, Body: body}
}

// If builds a conditional; els may be nil.
func If(cond ExprID, then Block, els *Block) *Stmt {
	return &Stmt{Kind: StmtIf, Cond: cond, Body: then, Else: els}
}

// ForRange builds an inclusive counting loop.
func ForRange(v symbols.SymbolID, from, to ExprID, reverse bool, body Block) *Stmt {
	return &Stmt{Kind: StmtFor, Var: v, From: from, To: to, Reverse: reverse, Body: body}
}

// ForEach builds a loop over the elements of an array.
func ForEach(v symbols.SymbolID, array ExprID, body Block) *Stmt {
	return &Stmt{Kind: StmtFor, Var: v, From: array, Body: body}
}

// Print builds a print statement.
func Print(value ExprID) *Stmt {
	return &Stmt{Kind: StmtPrint, Value: value}
}

// Return builds a return statement.
func Return(value ExprID) *Stmt {
	return &Stmt{Kind: StmtReturn, Value: value}
}

// Eval builds a call evaluated for its effects.
func Eval(call ExprID) *Stmt {
	return &Stmt{Kind: StmtEval, Value: call}
}

// Stmts wraps statements into a block.
func Stmts(stmts ...*Stmt) Block {
	b := Block{Items: make([]BlockItem, len(stmts))}
	for i, s := range stmts {
		b.Items[i] = BlockItem{Stmt: s}
	}
	return b
}

// Append adds a statement to the block.
func (b *Block) Append(s *Stmt) {
	b.Items = append(b.Items, BlockItem{Stmt: s})
}

// Declare adds a local declaration to the block.
func (b *Block) Declare(sym symbols.SymbolID, init ExprID) {
	b.Items = append(b.Items, BlockItem{Decl: &LocalDecl{Sym: sym, Init: init}})
}
