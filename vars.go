package main

import "sort"

// VarSet is a set of variable names.
type VarSet map[string]struct{}

func (vs VarSet) Add(name string) { vs[name] = struct{}{} }

func (vs VarSet) Has(name string) bool {
	_, ok := vs[name]
	return ok
}

// Sorted returns the names in lexical order.
func (vs VarSet) Sorted() []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectVariables returns every identifier assigned or referenced in node.
func CollectVariables(node Node) VarSet {
	vars := VarSet{}
	collectVariablesRecursive(node, vars)
	return vars
}

func collectVariablesRecursive(node Node, vars VarSet) {
	switch n := node.(type) {
	case *Program:
		for _, stmt := range n.Statements {
			collectVariablesRecursive(stmt, vars)
		}
	case *Assignment:
		if n.Target.Kind == Identifier {
			vars.Add(n.Target.Text)
		}
		collectVariablesRecursive(n.Value, vars)
	case *BinaryOp:
		collectVariablesRecursive(n.Left, vars)
		collectVariablesRecursive(n.Right, vars)
	case *Literal:
		if n.Token != nil && n.Token.Kind == Identifier {
			vars.Add(n.Token.Text)
		}
	}
}
