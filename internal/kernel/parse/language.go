// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package parse implements spec.md §4.D (incremental parser + tree cache)
// and §4.E (parse epoch). The grammar engine itself — github.com/smacker
// /go-tree-sitter — is treated as the black-box library spec.md §1 calls
// out for "defined reuse semantics": this package never second-guesses
// its child order, only records it.
package parse

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported grammar.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangUnknown    Language = ""
)

// DetectLanguage maps a file extension to a supported Language. An
// unrecognized extension yields LangUnknown, which the parser treats as a
// ParseFailure rather than silently skipping the file (spec.md §7: no
// ParseFailure is ever "skipped").
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".py":
		return LangPython
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".tsx":
		return LangTypeScript
	case ".rs":
		return LangRust
	default:
		return LangUnknown
	}
}

// pools holds one sync.Pool of *sitter.Parser per supported language.
// Parsers are not goroutine-safe, so the scheduler's workers (§4.H) each
// borrow one for the duration of a single file's parse.
type pools struct {
	initOnce sync.Once
	byLang   map[Language]*sync.Pool
}

func newPools() *pools {
	return &pools{byLang: make(map[Language]*sync.Pool, 5)}
}

func (p *pools) init() {
	p.initOnce.Do(func() {
		p.byLang[LangGo] = &sync.Pool{New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(golang.GetLanguage())
			return parser
		}}
		p.byLang[LangPython] = &sync.Pool{New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(python.GetLanguage())
			return parser
		}}
		p.byLang[LangJavaScript] = &sync.Pool{New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(javascript.GetLanguage())
			return parser
		}}
		p.byLang[LangTypeScript] = &sync.Pool{New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(typescript.GetLanguage())
			return parser
		}}
		p.byLang[LangRust] = &sync.Pool{New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(rust.GetLanguage())
			return parser
		}}
	})
}

func (p *pools) get(lang Language) (*sitter.Parser, bool) {
	p.init()
	pool, ok := p.byLang[lang]
	if !ok {
		return nil, false
	}
	parser, _ := pool.Get().(*sitter.Parser)
	return parser, true
}

func (p *pools) put(lang Language, parser *sitter.Parser) {
	if pool, ok := p.byLang[lang]; ok {
		pool.Put(parser)
	}
}
