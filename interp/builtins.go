package interp

import (
	"fmt"
	"strconv"
)

// registerBuiltins installs the runtime builtins skeleton named in
// SPEC_FULL.md's implementation-budget line "interpreter (values, env,
// eval, runtime builtins skeleton)" — print/typeof/len plus a handful
// of numeric/string helpers a program needs to do anything observable.
// The standard library proper is an explicit Non-goal; this is just
// enough surface for programs to print and introspect values.
func registerBuiltins(it *Interp) {
	define := func(name string, fn NativeFunc) {
		it.Global.Define(name, NewNativeFunction(name, fn), true)
	}

	define("print", func(it *Interp, args []Value) (Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(it.Out, " ")
			}
			fmt.Fprint(it.Out, Display(a))
		}
		fmt.Fprintln(it.Out)
		return Null(), nil
	})

	define("typeof", func(it *Interp, args []Value) (Value, error) {
		if len(args) == 0 {
			return Null(), nil
		}
		return NewString(args[0].Kind.String()), nil
	})

	define("len", func(it *Interp, args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, throwString("len expects 1 argument")
		}
		switch args[0].Kind {
		case KString:
			return Int(int64(len(args[0].str.Data)), WI64), nil
		case KArray:
			return Int(int64(len(args[0].arr.Items)), WI64), nil
		case KBuffer:
			return Int(int64(len(args[0].buf.Data)), WI64), nil
		case KObject:
			return Int(int64(len(args[0].obj.Order)), WI64), nil
		}
		return Value{}, throwString("len: unsupported kind %s", args[0].Kind)
	})

	define("push", func(it *Interp, args []Value) (Value, error) {
		if len(args) != 2 || args[0].Kind != KArray {
			return Value{}, throwString("push expects (array, value)")
		}
		Retain(args[1])
		args[0].arr.Items = append(args[0].arr.Items, args[1])
		return args[0], nil
	})

	define("pop", func(it *Interp, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Kind != KArray {
			return Value{}, throwString("pop expects (array)")
		}
		items := args[0].arr.Items
		if len(items) == 0 {
			return Value{}, throwString("pop from empty array")
		}
		last := items[len(items)-1]
		args[0].arr.Items = items[:len(items)-1]
		return last, nil
	})

	define("str", func(it *Interp, args []Value) (Value, error) {
		if len(args) == 0 {
			return NewString(""), nil
		}
		return NewString(Display(args[0])), nil
	})

	define("int", func(it *Interp, args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, throwString("int expects 1 argument")
		}
		switch args[0].Kind {
		case KInt:
			return args[0], nil
		case KFloat:
			return Int(int64(args[0].fltVal), WI64), nil
		case KString:
			n, err := strconv.ParseInt(args[0].str.Data, 10, 64)
			if err != nil {
				return Value{}, throwString("cannot parse %q as int", args[0].str.Data)
			}
			return Int(n, WI64), nil
		case KBool:
			if args[0].boolVal {
				return Int(1, WI64), nil
			}
			return Int(0, WI64), nil
		}
		return Value{}, throwString("int: unsupported kind %s", args[0].Kind)
	})

	define("float", func(it *Interp, args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, throwString("float expects 1 argument")
		}
		switch args[0].Kind {
		case KFloat:
			return args[0], nil
		case KInt:
			return Float(float64(args[0].intVal)), nil
		case KString:
			f, err := strconv.ParseFloat(args[0].str.Data, 64)
			if err != nil {
				return Value{}, throwString("cannot parse %q as float", args[0].str.Data)
			}
			return Float(f), nil
		}
		return Value{}, throwString("float: unsupported kind %s", args[0].Kind)
	})

	makeChannel := func(it *Interp, args []Value) (Value, error) {
		cap := int64(1)
		if len(args) > 0 {
			cap = args[0].AsInt()
		}
		return NewChannel(int(cap))
	}
	define("channel", makeChannel)

	define("send", func(it *Interp, args []Value) (Value, error) {
		if len(args) != 2 || args[0].Kind != KChannel {
			return Value{}, throwString("send expects (channel, value)")
		}
		if err := args[0].ch.Send(args[1]); err != nil {
			return Value{}, err
		}
		return Null(), nil
	})

	define("recv", func(it *Interp, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Kind != KChannel {
			return Value{}, throwString("recv expects (channel)")
		}
		return args[0].ch.Recv()
	})

	define("close", func(it *Interp, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Kind != KChannel {
			return Value{}, throwString("close expects (channel)")
		}
		args[0].ch.Close()
		return Null(), nil
	})
}
