package msgcall

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/cockroachdb/apd/v3"
)

// Simple is a struct with simple fields.
type Simple struct {
	A int16
	B bool
}

// Tagged is a struct with msgpack struct tags.
type Tagged struct {
	A       string `msgpack:"a"`
	Skipped int    `msgpack:"-"`
	Empty   []int  `msgpack:"empty,omitempty"`
	private int
}

// Embedded is a struct that embeds another struct by value.
type Embedded struct {
	Simple
	C byte
}

// EmbeddedShadow is a struct that embeds another struct by value,
// with one of the embedded fields shadowed by an outer field.
type EmbeddedShadow struct {
	Simple
	B byte
}

// Embedded_P is a struct that embeds another struct by pointer.
type Embedded_P struct {
	*Simple
	C byte
}

// Embedded_PV is a struct with 2 layers of embedding, first by value
// then by pointer.
type Embedded_PV struct {
	Embedded_P
}

// Ambiguous embeds two structs that both provide A and B at the same
// depth.
type Ambiguous struct {
	Simple
	Other
	C byte
}

// Other is a struct whose fields collide with Simple's.
type Other struct {
	A string
	B string
}

// Tree is a self-referential struct.
type Tree struct {
	Val   int32
	Left  *Tree
	Right *Tree
}

type Name string

type Level int8

// Peer is the caller identity used by test Invokers.
type Peer string

var peerType = reflect.TypeFor[Peer]()

var errInsufficient = errors.New("insufficient funds")

// Account is a call target with methods on value and pointer
// receivers.
type Account struct {
	Owner   string
	Balance int64
}

// Namer is an interface that Account implements.
type Namer interface {
	Name() string
}

func (a Account) Name() string { return a.Owner }

func (a *Account) Deposit(amount int32) int64 {
	a.Balance += int64(amount)
	return a.Balance
}

func (a *Account) Withdraw(amount uint16) (int64, error) {
	if int64(amount) > a.Balance {
		return 0, errInsufficient
	}
	a.Balance -= int64(amount)
	return a.Balance, nil
}

// Audit takes the caller's identity after its positional argument.
func (a *Account) Audit(note string, who Peer) string {
	return fmt.Sprintf("%s: %s by %s", a.Owner, note, who)
}

// Whoami takes only a context and the caller.
func (a *Account) Whoami(ctx context.Context, who Peer) (string, bool) {
	return string(who), ctx.Value(testKey{}) != nil
}

// Rename takes a named string type.
func (a *Account) Rename(n Name) {
	a.Owner = string(n)
}

// Merge takes a non-primitive pointer parameter.
func (a *Account) Merge(other *Account) int64 {
	if other != nil {
		a.Balance += other.Balance
		other.Balance = 0
	}
	return a.Balance
}

// Tags takes a slice and a raw value.
func (a *Account) Tags(tags []any, extra any) int {
	if extra != nil {
		return len(tags) + 1
	}
	return len(tags)
}

// Rate takes a decimal and a char.
func (a *Account) Rate(d apd.Decimal, c Char) string {
	return fmt.Sprintf("%s%c", d.String(), rune(c))
}

func (a *Account) Sum(xs ...int) int {
	ret := 0
	for _, x := range xs {
		ret += x
	}
	return ret
}

func (a *Account) Channel() chan int { return nil }

type testKey struct{}

// Bag is a call target that cannot be used as a map key.
type Bag struct {
	Items []string
}

func (b Bag) Len() int { return len(b.Items) }

func init() {
	if err := RegisterStatic(reflect.TypeFor[Account](), "Open", func(owner string, balance int64) *Account {
		return &Account{owner, balance}
	}); err != nil {
		panic(err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
