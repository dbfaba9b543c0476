package ir

type (
	ExprID   uint32
	LvalueID uint32
)

const (
	NoExprID   ExprID   = 0
	NoLvalueID LvalueID = 0
)

func (id ExprID) IsValid() bool   { return id != NoExprID }
func (id LvalueID) IsValid() bool { return id != NoLvalueID }
