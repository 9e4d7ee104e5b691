// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fragment

import (
	"github.com/graphql-go/graphql/language/ast"
)

// Outcome reports what InjectMembershipFilter did to a fragment.
type Outcome int

const (
	// NotFound means no field in the fragment declares the target output. The
	// fragment was returned unchanged.
	NotFound Outcome = iota
	// Rewritten means exactly one field matched and a new fragment carrying
	// the membership filter was returned.
	Rewritten
	// Ambiguous means more than one field declares the target output, so
	// there is no single place to attach the filter.
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not found"
	case Rewritten:
		return "rewritten"
	case Ambiguous:
		return "ambiguous"
	}
	return "unknown"
}

// InjectMembershipFilter returns a copy of the operation with a membership
// filter attached to the one field that declares an output named outputName.
// The filter restricts the field to the values of the runtime argument named
// variable. The input operation is never modified: the copy shares every
// subtree that is not on the path from the root to the matched field. The
// returned operation is the input itself unless the Outcome is Rewritten.
func InjectMembershipFilter(op *ast.OperationDefinition, outputName, variable string) (*ast.OperationDefinition, Outcome) {
	set, outcome := injectInSelectionSet(op.SelectionSet, outputName, variable)
	if outcome != Rewritten {
		return op, outcome
	}
	return ast.NewOperationDefinition(&ast.OperationDefinition{
		Operation:           op.Operation,
		Name:                op.Name,
		VariableDefinitions: op.VariableDefinitions,
		Directives:          op.Directives,
		SelectionSet:        set,
	}), Rewritten
}

// injectInSelection descends one selection. Fields that declare the target
// output are rewritten in place of recursion; their own sub-selections are
// left alone.
func injectInSelection(selection ast.Selection, outputName, variable string) (ast.Selection, Outcome) {
	switch node := selection.(type) {
	case *ast.Field:
		if declaresOutput(node, outputName) {
			return rewriteField(node, variable), Rewritten
		}
		set, outcome := injectInSelectionSet(node.SelectionSet, outputName, variable)
		if outcome != Rewritten {
			return selection, outcome
		}
		return ast.NewField(&ast.Field{
			Alias:        node.Alias,
			Name:         node.Name,
			Arguments:    node.Arguments,
			Directives:   node.Directives,
			SelectionSet: set,
		}), Rewritten
	case *ast.InlineFragment:
		set, outcome := injectInSelectionSet(node.SelectionSet, outputName, variable)
		if outcome != Rewritten {
			return selection, outcome
		}
		return ast.NewInlineFragment(&ast.InlineFragment{
			TypeCondition: node.TypeCondition,
			Directives:    node.Directives,
			SelectionSet:  set,
		}), Rewritten
	default:
		// Fragment spreads cannot be the target field and carry no inline
		// sub-selections to descend into.
		return selection, NotFound
	}
}

func injectInSelectionSet(set *ast.SelectionSet, outputName, variable string) (*ast.SelectionSet, Outcome) {
	if set == nil {
		return nil, NotFound
	}
	rewritten := false
	selections := make([]ast.Selection, len(set.Selections))
	for i, selection := range set.Selections {
		newSelection, outcome := injectInSelection(selection, outputName, variable)
		switch outcome {
		case Ambiguous:
			return nil, Ambiguous
		case Rewritten:
			if rewritten {
				// A sibling subtree already matched.
				return nil, Ambiguous
			}
			rewritten = true
		}
		selections[i] = newSelection
	}
	if !rewritten {
		return set, NotFound
	}
	return ast.NewSelectionSet(&ast.SelectionSet{
		Selections: selections,
	}), Rewritten
}

// declaresOutput reports whether the field carries an output directive whose
// out_name equals outputName.
func declaresOutput(field *ast.Field, outputName string) bool {
	for _, directive := range field.Directives {
		if directive.Name == nil || directive.Name.Value != outputDirective {
			continue
		}
		for _, arg := range directive.Arguments {
			if arg.Name == nil || arg.Name.Value != outputNameArg {
				continue
			}
			if str, ok := arg.Value.(*ast.StringValue); ok && str.Value == outputName {
				return true
			}
		}
	}
	return false
}

// rewriteField copies the field with the membership filter appended to its
// directives. Everything else, including its sub-selections, is shared with
// the original.
func rewriteField(field *ast.Field, variable string) *ast.Field {
	directives := make([]*ast.Directive, 0, len(field.Directives)+1)
	directives = append(directives, field.Directives...)
	directives = append(directives, membershipFilter(variable))
	return ast.NewField(&ast.Field{
		Alias:        field.Alias,
		Name:         field.Name,
		Arguments:    field.Arguments,
		Directives:   directives,
		SelectionSet: field.SelectionSet,
	})
}

// membershipFilter builds the directive
// @filter(op_name: "in_collection", value: ["$variable"]).
func membershipFilter(variable string) *ast.Directive {
	return ast.NewDirective(&ast.Directive{
		Name: ast.NewName(&ast.Name{Value: filterDirective}),
		Arguments: []*ast.Argument{
			ast.NewArgument(&ast.Argument{
				Name:  ast.NewName(&ast.Name{Value: filterOpArg}),
				Value: ast.NewStringValue(&ast.StringValue{Value: inCollectionOp}),
			}),
			ast.NewArgument(&ast.Argument{
				Name: ast.NewName(&ast.Name{Value: filterValueArg}),
				Value: ast.NewListValue(&ast.ListValue{
					Values: []ast.Value{
						ast.NewStringValue(&ast.StringValue{
							Value: variableArgPrefix + variable,
						}),
					},
				}),
			}),
		},
	})
}
