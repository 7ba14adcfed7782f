package page

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

const convertLogPrefix = "page:convert"

// DefaultMaxDepth bounds how deeply nested a posted value may be.
const DefaultMaxDepth = 64

// DefaultMaxItems bounds the total number of list elements and object fields
// in one posted value.
const DefaultMaxItems = 100000

// ctxCheckEvery is how many items are exported between context checks.
const ctxCheckEvery = 1024

// exporter turns one script value into a dynvalue.Value. The item budget is
// shared by the whole value, so a wide array nested in itself cannot multiply
// the work.
type exporter struct {
	ctx      context.Context
	maxDepth int
	maxItems int
	left     int
	seen     int
}

// toDynamic exports a script value into a dynvalue.Value. Object keys keep
// their enumeration order. Functions and symbols cannot cross the channel.
func toDynamic(ctx context.Context, v goja.Value, maxDepth, maxItems int) (dynvalue.Value, error) {
	e := &exporter{ctx: ctx, maxDepth: maxDepth, maxItems: maxItems, left: maxItems}
	return e.export(v, 0)
}

// take reserves n items from the budget.
func (e *exporter) take(n int64) error {
	if n < 0 || n > int64(e.left) {
		return fmt.Errorf("%s - value has more than %d items", convertLogPrefix, e.maxItems)
	}
	e.left -= int(n)
	return nil
}

// tick counts one exported item and reports a done context.
func (e *exporter) tick() error {
	e.seen++
	if e.seen%ctxCheckEvery != 0 {
		return nil
	}
	if err := e.ctx.Err(); err != nil {
		return fmt.Errorf("%s - export interrupted: %w", convertLogPrefix, err)
	}
	return nil
}

func (e *exporter) export(v goja.Value, depth int) (dynvalue.Value, error) {
	if depth > e.maxDepth {
		return dynvalue.Null(), fmt.Errorf("%s - value nested deeper than %d", convertLogPrefix, e.maxDepth)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return dynvalue.Null(), nil
	}

	obj, isObject := v.(*goja.Object)
	if !isObject {
		switch x := v.Export().(type) {
		case bool:
			return dynvalue.Bool(x), nil
		case int64:
			return dynvalue.Number(float64(x)), nil
		case float64:
			return dynvalue.Number(x), nil
		case string:
			return dynvalue.String(x), nil
		}
		if _, isSymbol := v.(*goja.Symbol); isSymbol {
			return dynvalue.Null(), fmt.Errorf("%s - symbols cannot be posted", convertLogPrefix)
		}
		return dynvalue.Null(), fmt.Errorf("%s - unsupported script value %s", convertLogPrefix, v.String())
	}

	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return dynvalue.Null(), fmt.Errorf("%s - functions cannot be posted", convertLogPrefix)
	}

	switch obj.ClassName() {
	case "Array":
		// length is script controlled; check it before allocating.
		n := obj.Get("length").ToInteger()
		if err := e.take(n); err != nil {
			return dynvalue.Null(), err
		}
		items := make([]dynvalue.Value, 0, n)
		for i := int64(0); i < n; i++ {
			if err := e.tick(); err != nil {
				return dynvalue.Null(), err
			}
			item, err := e.export(obj.Get(strconv.FormatInt(i, 10)), depth+1)
			if err != nil {
				return dynvalue.Null(), fmt.Errorf("%s - [%d]: %w", convertLogPrefix, i, err)
			}
			items = append(items, item)
		}
		return dynvalue.List(items...), nil
	case "Date":
		// An invalid date exports as nil.
		if t, ok := obj.Export().(time.Time); ok {
			return dynvalue.Date(t.UTC()), nil
		}
		return dynvalue.Null(), nil
	case "Number":
		return dynvalue.Number(obj.ToFloat()), nil
	case "String":
		return dynvalue.String(obj.String()), nil
	}

	keys := obj.Keys()
	if err := e.take(int64(len(keys))); err != nil {
		return dynvalue.Null(), err
	}
	fields := make([]dynvalue.Field, 0, len(keys))
	for _, key := range keys {
		if err := e.tick(); err != nil {
			return dynvalue.Null(), err
		}
		item, err := e.export(obj.Get(key), depth+1)
		if err != nil {
			return dynvalue.Null(), fmt.Errorf("%s - %s: %w", convertLogPrefix, key, err)
		}
		fields = append(fields, dynvalue.F(key, item))
	}
	return dynvalue.Object(fields...), nil
}

// fromDynamic turns a host value back into a script value.
func fromDynamic(vm *goja.Runtime, v dynvalue.Value) goja.Value {
	switch v.Kind() {
	case dynvalue.KindNull:
		return goja.Null()
	case dynvalue.KindDate:
		t, _ := v.AsDate()
		d, err := vm.New(vm.Get("Date"), vm.ToValue(t.UnixMilli()))
		if err != nil {
			return vm.ToValue(t.UnixMilli())
		}
		return d
	}
	return vm.ToValue(v.Native())
}
