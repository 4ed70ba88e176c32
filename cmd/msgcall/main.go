package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/value"
	"github.com/danderson/msgcall"
	"github.com/danderson/msgcall/fragments"
	"github.com/kr/pretty"
	"go.uber.org/zap"
)

var globalArgs struct {
	Verbose bool `flag:"verbose,Log cache builds and failures to stderr"`
	Raw     bool `flag:"raw,Read binary input from stdin instead of hex"`
}

var argsArgs struct {
	Origin string `flag:"origin,Origin of the buffer, enables caller injection"`
	Extra  int    `flag:"extra,Number of extra argument slots to append"`
	Remote bool   `flag:"remote,Decode remote funcrefs"`
}

func main() {
	root := &command.C{
		Name:     "msgcall",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Init: func(env *command.Env) error {
			if !globalArgs.Verbose {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			msgcall.SetLogger(l)
			return nil
		},
		Commands: []*command.C{
			{
				Name:  "decode",
				Usage: "decode [hex]",
				Help: `Decode a MessagePack value.

The value is read from the argument as hex, or from stdin if there is
no argument. Whitespace in hex input is ignored.`,
				Run: runDecode,
			},
			{
				Name:  "args",
				Usage: "args [hex]",
				Help: `Decode a MessagePack argument buffer.

The buffer is read like the decode command's input. The decoded
argument sequence is printed one slot per line, including the extra
and caller slots.`,
				SetFlags: command.Flags(flax.MustBind, &argsArgs),
				Run:      runArgs,
			},
			{
				Name:  "encode",
				Usage: "encode [json]",
				Help: `Encode a JSON value as MessagePack, and print it as hex.

The JSON value is read from the argument, or from stdin if there is
no argument. Integers encode as the smallest fixed-width MessagePack
integer that holds them, other numbers as float 64.`,
				Run: runEncode,
			},
			{
				Name:  "byteorder",
				Usage: "byteorder",
				Help:  "Print the host byte order, and whether MessagePack fields need swapping.",
				Run:   command.Adapt(runByteOrder),
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

// readInput returns the bytes given by the single optional argument
// as hex, or read from stdin.
func readInput(env *command.Env) ([]byte, error) {
	var in string
	switch len(env.Args) {
	case 0:
		bs, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		if globalArgs.Raw {
			return bs, nil
		}
		in = string(bs)
	case 1:
		in = env.Args[0]
	default:
		return nil, env.Usagef("too many arguments")
	}
	in = strings.Join(strings.Fields(in), "")
	ret, err := hex.DecodeString(in)
	if err != nil {
		return nil, fmt.Errorf("parsing hex input: %w", err)
	}
	return ret, nil
}

func runDecode(env *command.Env) error {
	bs, err := readInput(env)
	if err != nil {
		return err
	}
	v, err := msgcall.Decode(bs, nil)
	if err != nil {
		return explain(bs, err)
	}
	fmt.Printf("%s: %# v\n", msgcall.KindOf(v), pretty.Formatter(v))
	return nil
}

func runArgs(env *command.Env) error {
	bs, err := readInput(env)
	if err != nil {
		return err
	}
	opts := &msgcall.DecodeOptions{
		RemoteFuncRefs: argsArgs.Remote,
		ExtraSlots:     argsArgs.Extra,
	}
	if argsArgs.Origin != "" {
		opts.Origin = value.Just(argsArgs.Origin)
		opts.ResolveCaller = func(origin string) any {
			return "caller " + origin
		}
	}
	args, err := msgcall.DecodeArgs(bs, opts)
	if err != nil {
		return explain(bs, err)
	}
	for i, a := range args {
		fmt.Printf("%d: %# v\n", i, pretty.Formatter(a))
	}
	return nil
}

func runEncode(env *command.Env) error {
	var r io.Reader
	switch len(env.Args) {
	case 0:
		r = os.Stdin
	case 1:
		r = strings.NewReader(env.Args[0])
	default:
		return env.Usagef("too many arguments")
	}
	v, err := readJSON(r)
	if err != nil {
		return err
	}
	bs, err := msgcall.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(bs))
	return nil
}

func runByteOrder(env *command.Env) error {
	host := fragments.HostOrder()
	fmt.Println("host byte order:", host)
	if fragments.BigEndian.Native() {
		fmt.Println("MessagePack fields are native, no swapping needed")
	} else {
		fmt.Println("MessagePack fields are byte-swapped on load")
	}
	return nil
}

// explain annotates a decode error with the bytes around the failure.
func explain(bs []byte, err error) error {
	var de *msgcall.DecodeError
	if !errors.As(err, &de) {
		return err
	}
	start := max(de.Offset-4, 0)
	end := min(de.Offset+8, len(bs))
	return fmt.Errorf("%w\n  near: % x", err, bs[start:end])
}
