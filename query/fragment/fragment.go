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

// Package fragment manipulates the GraphQL fragments that make up a federated
// query: parsing and printing them, discovering their runtime arguments, and
// rewriting them to carry stitching predicates.
package fragment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/printer"
)

// Directive and argument names that fragments use to declare outputs and
// filters.
const (
	outputDirective   = "output"
	outputNameArg     = "out_name"
	filterDirective   = "filter"
	filterOpArg       = "op_name"
	filterValueArg    = "value"
	inCollectionOp    = "in_collection"
	variableArgPrefix = "$"
)

// Parse parses the text of a sub-query fragment into its AST.
func Parse(text string) (*ast.Document, error) {
	doc, err := parser.Parse(parser.ParseParams{
		Source: text,
		Options: parser.ParseOptions{
			NoLocation: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parsing query fragment: %v", err)
	}
	return doc, nil
}

// Print returns the canonical text of the given AST node.
func Print(node ast.Node) string {
	return printer.Print(node).(string)
}

// OnlyOperation returns the query operation making up the given fragment. It
// returns an error unless the fragment consists of exactly one query
// operation.
func OnlyOperation(doc *ast.Document) (*ast.OperationDefinition, error) {
	if doc == nil || len(doc.Definitions) == 0 {
		return nil, fmt.Errorf("fragment is empty")
	}
	if len(doc.Definitions) != 1 {
		return nil, fmt.Errorf("fragment has %v definitions, expected exactly 1",
			len(doc.Definitions))
	}
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	if !ok || op.Operation != "query" {
		return nil, fmt.Errorf("fragment is not a query operation")
	}
	return op, nil
}

// NewDocument wraps a single query operation back up as a fragment.
func NewDocument(op *ast.OperationDefinition) *ast.Document {
	return ast.NewDocument(&ast.Document{
		Definitions: []ast.Node{op},
	})
}

// RuntimeArguments returns the sorted names of the runtime arguments the
// fragment references, without their "$" prefix. A runtime argument is any
// "$"-prefixed entry in the value list of a filter directive.
func RuntimeArguments(doc *ast.Document) []string {
	found := map[string]bool{}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		collectRuntimeArguments(op.SelectionSet, found)
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectRuntimeArguments(set *ast.SelectionSet, found map[string]bool) {
	if set == nil {
		return
	}
	for _, selection := range set.Selections {
		if field, ok := selection.(*ast.Field); ok {
			for _, directive := range field.Directives {
				collectDirectiveArguments(directive, found)
			}
		}
		collectRuntimeArguments(selection.GetSelectionSet(), found)
	}
}

func collectDirectiveArguments(directive *ast.Directive, found map[string]bool) {
	if directive.Name == nil || directive.Name.Value != filterDirective {
		return
	}
	for _, arg := range directive.Arguments {
		if arg.Name == nil || arg.Name.Value != filterValueArg {
			continue
		}
		list, ok := arg.Value.(*ast.ListValue)
		if !ok {
			continue
		}
		for _, value := range list.Values {
			str, ok := value.(*ast.StringValue)
			if !ok {
				continue
			}
			if strings.HasPrefix(str.Value, variableArgPrefix) {
				found[strings.TrimPrefix(str.Value, variableArgPrefix)] = true
			}
		}
	}
}
