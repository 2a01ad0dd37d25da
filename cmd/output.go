package cmd

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// printer writes operator-facing progress lines. Emoji markers are only used
// when the destination is a terminal; redirected output gets plain tags.
type printer struct {
	w     io.Writer
	fancy bool
}

func newPrinter(w io.Writer) *printer {
	fancy := false
	if f, ok := w.(*os.File); ok {
		fancy = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, fancy: fancy}
}

var plainMarks = map[string]string{
	"🚀": "==>",
	"🔧": "-->",
	"✅": "[ok]",
	"❌": "[fail]",
	"⚠️": "[warn]",
	"📋": "==>",
	"🔑": "-->",
	"🧪": "[dry-run]",
}

func (p *printer) mark(emoji string) string {
	if p.fancy {
		return emoji
	}
	if plain, ok := plainMarks[emoji]; ok {
		return plain
	}
	return "-"
}

func (p *printer) Printf(emoji, format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.mark(emoji), fmt.Sprintf(format, args...))
}

func (p *printer) Println(args ...interface{}) {
	fmt.Fprintln(p.w, args...)
}
