package ast

// Arena owns every node of one parsed module set. Nodes are appended once
// during parsing and read-only afterwards; handles are 1-based indexes
// into the typed slices.
type Arena struct {
	modules     []Module
	blocks      []Block
	statements  []Statement
	expressions []Expression
	functions   []Function
	components  []Component
	consts      []Const
	params      []Param
	states      []State
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// AddModule appends a module and returns its handle.
func (a *Arena) AddModule(m Module) ModuleID {
	a.modules = append(a.modules, m)
	return ModuleID(len(a.modules))
}

// AddBlock appends a block and returns its handle.
func (a *Arena) AddBlock(b Block) BlockID {
	a.blocks = append(a.blocks, b)
	return BlockID(len(a.blocks))
}

// AddStatement appends a statement and returns its handle.
func (a *Arena) AddStatement(s Statement) StatementID {
	a.statements = append(a.statements, s)
	return StatementID(len(a.statements))
}

// AddExpression appends an expression and returns its handle.
func (a *Arena) AddExpression(e Expression) ExpressionID {
	a.expressions = append(a.expressions, e)
	return ExpressionID(len(a.expressions))
}

// AddFunction appends a function and returns its handle.
func (a *Arena) AddFunction(f Function) FunctionID {
	a.functions = append(a.functions, f)
	return FunctionID(len(a.functions))
}

// AddComponent appends a component and returns its handle.
func (a *Arena) AddComponent(c Component) ComponentID {
	a.components = append(a.components, c)
	return ComponentID(len(a.components))
}

// AddConst appends a const and returns its handle.
func (a *Arena) AddConst(c Const) ConstID {
	a.consts = append(a.consts, c)
	return ConstID(len(a.consts))
}

// AddParam appends a parameter and returns its handle.
func (a *Arena) AddParam(p Param) ParamID {
	a.params = append(a.params, p)
	return ParamID(len(a.params))
}

// AddState appends a state declaration and returns its handle.
func (a *Arena) AddState(s State) StateID {
	a.states = append(a.states, s)
	return StateID(len(a.states))
}

// Module resolves a module handle. Returns nil for NoModule.
func (a *Arena) Module(id ModuleID) *Module {
	if id <= 0 || int(id) > len(a.modules) {
		return nil
	}
	return &a.modules[id-1]
}

// Block resolves a block handle. Returns nil for NoBlock.
func (a *Arena) Block(id BlockID) *Block {
	if id <= 0 || int(id) > len(a.blocks) {
		return nil
	}
	return &a.blocks[id-1]
}

// Statement resolves a statement handle. Returns nil for NoStatement.
func (a *Arena) Statement(id StatementID) *Statement {
	if id <= 0 || int(id) > len(a.statements) {
		return nil
	}
	return &a.statements[id-1]
}

// Expression resolves an expression handle. Returns nil for NoExpression.
func (a *Arena) Expression(id ExpressionID) *Expression {
	if id <= 0 || int(id) > len(a.expressions) {
		return nil
	}
	return &a.expressions[id-1]
}

// Function resolves a function handle. Returns nil for NoFunction.
func (a *Arena) Function(id FunctionID) *Function {
	if id <= 0 || int(id) > len(a.functions) {
		return nil
	}
	return &a.functions[id-1]
}

// Component resolves a component handle. Returns nil for NoComponent.
func (a *Arena) Component(id ComponentID) *Component {
	if id <= 0 || int(id) > len(a.components) {
		return nil
	}
	return &a.components[id-1]
}

// Const resolves a const handle. Returns nil for NoConst.
func (a *Arena) Const(id ConstID) *Const {
	if id <= 0 || int(id) > len(a.consts) {
		return nil
	}
	return &a.consts[id-1]
}

// Param resolves a parameter handle. Returns nil for NoParam.
func (a *Arena) Param(id ParamID) *Param {
	if id <= 0 || int(id) > len(a.params) {
		return nil
	}
	return &a.params[id-1]
}

// State resolves a state handle. Returns nil for NoState.
func (a *Arena) State(id StateID) *State {
	if id <= 0 || int(id) > len(a.states) {
		return nil
	}
	return &a.states[id-1]
}

// BindingName returns the declared name behind a resolved binding.
func (a *Arena) BindingName(b Binding) string {
	switch b.Kind {
	case BindLet:
		if s := a.Statement(b.Stmt); s != nil {
			return s.Name
		}
	case BindState:
		if s := a.State(b.State); s != nil {
			return s.Name
		}
	case BindConst:
		if c := a.Const(b.Const); c != nil {
			return c.Name
		}
	case BindFunction:
		if f := a.Function(b.Function); f != nil {
			return f.Name
		}
	case BindParameter:
		if p := a.Param(b.Param); p != nil {
			return p.Name
		}
	case BindComponent:
		if c := a.Component(b.Component); c != nil {
			return c.Name
		}
	}
	return ""
}
