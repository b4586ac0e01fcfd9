// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"strings"

	"github.com/cpgkernel/cpgk/internal/kernel/ir"
)

// classifyKind maps a tree-sitter node type string, for any of the five
// supported grammars, onto the fixed cross-language ir.NodeKind set.
// Grounded on standardbeagle-lci's UnifiedExtractor dispatch: match the
// grammar's own vocabulary rather than trying to normalize it upstream,
// since each grammar names the same concept differently (e.g. Go's
// "if_statement" vs Rust's "if_expression").
func classifyKind(nodeType string) ir.NodeKind {
	switch nodeType {
	case "source_file", "module", "program":
		return ir.KindFile

	case "function_declaration", "method_declaration", "func_literal",
		"function_definition", "function_item", "arrow_function",
		"function_expression", "generator_function_declaration",
		"method_definition", "lambda":
		return ir.KindFunction

	case "block", "statement_block", "compound_statement", "suite":
		return ir.KindBlock

	case "call_expression", "call", "method_invocation":
		return ir.KindCall

	case "return_statement", "return_expression":
		return ir.KindReturn

	case "if_statement", "if_expression", "conditional_expression",
		"match_expression", "switch_statement", "ternary_expression":
		return ir.KindBranch

	case "for_statement", "for_expression", "while_statement",
		"while_expression", "loop_expression", "do_statement",
		"for_in_statement", "range_clause":
		return ir.KindLoop

	case "assignment_expression", "assignment", "augmented_assignment_expression",
		"short_var_declaration", "let_declaration", "const_declaration":
		return ir.KindAssign

	case "parameter_declaration", "parameter", "required_parameter",
		"optional_parameter", "formal_parameter", "typed_parameter",
		"self_parameter":
		return ir.KindParameter

	case "var_declaration", "variable_declarator", "var_spec",
		"const_spec", "identifier_pattern", "let_declarator":
		return ir.KindVariable

	case "interpreted_string_literal", "raw_string_literal", "string",
		"string_literal", "number_literal", "integer_literal",
		"float_literal", "int_literal", "true", "false", "nil", "none",
		"null", "boolean_literal", "char_literal":
		return ir.KindLiteral

	default:
		if strings.HasSuffix(nodeType, "_statement") || strings.HasSuffix(nodeType, "_declaration") {
			return ir.KindStatement
		}
		return ir.KindExpression
	}
}
