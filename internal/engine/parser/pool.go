package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parserPool recycles tree-sitter parsers for one grammar. Safe for concurrent
// use; AnalyzeFiles parses modules from several goroutines.
type parserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{lang: lang}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

func (p *parserPool) get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	sp.SetLanguage(p.lang)
	p.leased.Add(1)
	return sp
}

// put resets sp so it keeps no reference to the previous tree.
func (p *parserPool) put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

// inUse returns the number of parsers currently leased.
func (p *parserPool) inUse() int {
	return int(p.leased.Load())
}
