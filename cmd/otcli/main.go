// Command otcli is a minimal terminal reference editor-adapter: it
// implements editorclient.EditorAdapter over a line-buffered stdin/stdout
// session, and drives the full client stack (client, undo, editorclient)
// against a document hosted by cmd/server over internal/wsconn.Dial.
//
// It exists to exercise the core library end to end outside of a test
// harness, not as a production editor. Typed lines are appended to the
// document; ":u" undoes, ":r" redoes, ":q" quits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/editorclient"
	"github.com/quillpad/quillpad/internal/wsconn"
	"github.com/quillpad/quillpad/ot"
	"github.com/quillpad/quillpad/pkg/otlog"
)

// termAdapter implements editorclient.EditorAdapter over the process's
// own stdout; it has no real cursor/selection concept, so GetCursor
// always reports the caret at end-of-document.
type termAdapter struct {
	text string
	cb   editorclient.EditorCallbacks
	undo func()
	redo func()
}

func (t *termAdapter) GetText() string  { return t.text }
func (t *termAdapter) SetText(s string) { t.text = s }
func (t *termAdapter) GetCursor() ot.Cursor {
	n := uint32(len([]rune(t.text)))
	return ot.Cursor{Position: n, SelectionEnd: n}
}
func (t *termAdapter) SetCursor(ot.Cursor) {}

type noopDisposable struct{}

func (noopDisposable) Dispose() {}

func (t *termAdapter) SetOtherCursor(id editorclient.ClientID, cur ot.Cursor, color, name string) editorclient.Disposable {
	fmt.Printf("\n[%s's cursor @ %d]\n", name, cur.Position)
	return noopDisposable{}
}

func (t *termAdapter) InvertOperation(op *ot.Operation) *ot.Operation {
	return op.Invert(t.text, nil)
}

func (t *termAdapter) ApplyOperation(op *ot.Operation) {
	newText, err := op.Apply(t.text, nil)
	if err != nil {
		if t.cb.Error != nil {
			t.cb.Error(err)
		}
		return
	}
	t.text = newText
	fmt.Print("\r--- document ---\n")
	fmt.Print(t.text)
	fmt.Print("\n----------------\n> ")
}

func (t *termAdapter) RegisterCallbacks(cb editorclient.EditorCallbacks) { t.cb = cb }
func (t *termAdapter) RegisterUndo(cb func())                            { t.undo = cb }
func (t *termAdapter) RegisterRedo(cb func())                            { t.redo = cb }

// typeLine appends line+"\n" to the document as a local edit, through the
// same Change callback a real text-widget adapter would fire.
func (t *termAdapter) typeLine(line string) {
	before := t.text
	op := ot.NewOperation()
	op.Retain(uint64(len([]rune(before))), nil)
	op.Insert(line+"\n", nil)
	inverse := op.Invert(before, nil)
	t.text = before + line + "\n"
	if t.cb.Change != nil {
		t.cb.Change(op, inverse)
	}
}

func main() {
	var (
		addr = flag.String("addr", "ws://localhost:3030", "server base address")
		doc  = flag.String("doc", "scratch", "document id to join")
		name = flag.String("name", "anon", "display name")
	)
	flag.Parse()

	otlog.Init("warn")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	url := strings.TrimSuffix(*addr, "/") + "/api/socket/" + *doc
	coord, err := wsconn.Dial(ctx, url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "otcli: dial:", err)
		os.Exit(1)
	}
	defer coord.Close()

	editor := &termAdapter{}
	c := editorclient.New(editorclient.ClientID(uuid.NewString()), hueForName(*name), *name, editor, coord)
	defer c.Dispose()

	c.On(editorclient.EventError, func(args ...interface{}) {
		fmt.Fprintln(os.Stderr, "\nerror:", args[0])
	})

	fmt.Printf("connected to %s as %s\n> ", url, *name)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch line {
		case ":q":
			return
		case ":u":
			editor.undo()
		case ":r":
			editor.redo()
		default:
			editor.typeLine(line)
		}
		fmt.Print("> ")
	}
}

func hueForName(name string) string {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return fmt.Sprintf("hsl(%d,70%%,50%%)", h%360)
}
