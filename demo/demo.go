// Package demo declares a small set of remotable interfaces, their
// concrete local implementations, and their hand-written proxy stubs.
// It exists to give the orbit package's own tests and the orbitd daemon
// something real to register and call across a connection - Go cannot
// synthesize a proxy for an arbitrary interface at runtime, so every
// remotable interface needs exactly one small stub like the ones here,
// written once and registered alongside its interface.
package demo

import (
	"fmt"

	"github.com/vknair/orbit-rmi/registry"
)

// Greeter is a plain request/response remotable: no remotable arguments
// or results, nothing but a value round trip.
type Greeter interface {
	Greet(name string) string
}

// LocalGreeter is a trivial local implementation suitable for hosting.
type LocalGreeter struct {
	Prefix string
}

func (g *LocalGreeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s", g.Prefix, name)
}

type greeterStub struct{ inv registry.Invoker }

// NewGreeterStub is Greeter's registry.StubFactory.
func NewGreeterStub(inv registry.Invoker) interface{} { return &greeterStub{inv: inv} }

func (g *greeterStub) Greet(name string) string {
	res, err := g.inv.Invoke("Greet", []interface{}{name})
	if err != nil {
		return ""
	}
	s, _ := res.(string)
	return s
}

// Translator demonstrates a method with a declared error return, so a
// blocking call's timeout is distinguishable from a legitimate result.
type Translator interface {
	Translate(word string) (string, error)
}

type LocalTranslator struct {
	Dictionary map[string]string
}

func (t *LocalTranslator) Translate(word string) (string, error) {
	v, ok := t.Dictionary[word]
	if !ok {
		return "", fmt.Errorf("demo: no translation for %q", word)
	}
	return v, nil
}

type translatorStub struct{ inv registry.Invoker }

func NewTranslatorStub(inv registry.Invoker) interface{} { return &translatorStub{inv: inv} }

func (t *translatorStub) Translate(word string) (string, error) {
	res, err := t.inv.Invoke("Translate", []interface{}{word})
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

// Logger is a fire-and-forget remotable, registered with Policy.NoReturn
// so the caller never waits on it.
type Logger interface {
	Log(line string)
}

type LocalLogger struct {
	Lines []string
}

func (l *LocalLogger) Log(line string) {
	l.Lines = append(l.Lines, line)
}

type loggerStub struct{ inv registry.Invoker }

func NewLoggerStub(inv registry.Invoker) interface{} { return &loggerStub{inv: inv} }

func (l *loggerStub) Log(line string) {
	_, _ = l.inv.Invoke("Log", []interface{}{line})
}

// Item and Box demonstrate a remotable argument and a remotable return:
// Box.Put takes a remotable Item by reference, Box.Get returns one.
type Item interface {
	Label() string
}

type LocalItem struct {
	Name string
}

func (i *LocalItem) Label() string { return i.Name }

type itemStub struct{ inv registry.Invoker }

func NewItemStub(inv registry.Invoker) interface{} { return &itemStub{inv: inv} }

func (i *itemStub) Label() string {
	res, err := i.inv.Invoke("Label", nil)
	if err != nil {
		return ""
	}
	s, _ := res.(string)
	return s
}

type Box interface {
	Put(item Item)
	Get() Item
}

type LocalBox struct {
	held Item
}

func (b *LocalBox) Put(item Item) { b.held = item }
func (b *LocalBox) Get() Item     { return b.held }

type boxStub struct{ inv registry.Invoker }

func NewBoxStub(inv registry.Invoker) interface{} { return &boxStub{inv: inv} }

func (b *boxStub) Put(item Item) {
	_, _ = b.inv.Invoke("Put", []interface{}{item})
}

func (b *boxStub) Get() Item {
	res, err := b.inv.Invoke("Get", nil)
	if err != nil {
		return nil
	}
	it, _ := res.(Item)
	return it
}

// Counter demonstrates a non-blocking call: Increment returns its zero
// value immediately and the caller collects the real total later with
// Space.GetResult.
type Counter interface {
	Increment(by int) int
}

type LocalCounter struct {
	Total int
}

func (c *LocalCounter) Increment(by int) int {
	c.Total += by
	return c.Total
}

type counterStub struct{ inv registry.Invoker }

func NewCounterStub(inv registry.Invoker) interface{} { return &counterStub{inv: inv} }

func (c *counterStub) Increment(by int) int {
	res, err := c.inv.Invoke("Increment", []interface{}{by})
	if err != nil {
		return 0
	}
	n, _ := res.(int)
	return n
}
