package server

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

type methodType struct {
	method    reflect.Method
	ArgType   reflect.Type // Struct whose exported fields receive the positional params
	ReplyType reflect.Type
	numParams int
}

type service struct {
	name   string // Method namespace, e.g. "nodara"
	rcvr   reflect.Value
	typ    reflect.Type
	method map[string]*methodType // "submitProposal" -> method
}

// NewService creates a service and scans rcvr for RPC methods.
func NewService(name string, rcvr any) (*service, error) {
	typ := reflect.TypeOf(rcvr)
	if typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("rpc: rcvr must be a pointer, got %s", typ.Kind())
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("rpc: rcvr must point to a struct, got %s", typ.Elem().Kind())
	}
	srv := &service{
		name:   name,
		rcvr:   reflect.ValueOf(rcvr),
		typ:    typ,
		method: make(map[string]*methodType),
	}
	srv.RegisterMethods()
	if len(srv.method) == 0 {
		return nil, fmt.Errorf("rpc: %s has no methods of the form func(*Args, *Reply) error", typ.Elem().Name())
	}
	return srv, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterMethods keeps exported methods shaped func(*Args, *Reply) error
// where Args is a struct, naming each with a lower-case first letter.
func (s *service) RegisterMethods() {
	for i := 0; i < s.typ.NumMethod(); i++ {
		method := s.typ.Method(i)
		mt := method.Type
		if mt.NumIn() != 3 || mt.NumOut() != 1 || mt.Out(0) != errorType ||
			mt.In(1).Kind() != reflect.Ptr || mt.In(2).Kind() != reflect.Ptr ||
			mt.In(1).Elem().Kind() != reflect.Struct {
			continue
		}

		argType := mt.In(1).Elem()
		s.method[lowerFirst(method.Name)] = &methodType{
			method:    method,
			ArgType:   argType,
			ReplyType: mt.In(2).Elem(),
			numParams: len(exportedFields(argType)),
		}
	}
}

// Call invokes the method via reflection.
func (s *service) Call(mType *methodType, argv, replyv reflect.Value) error {
	args := [3]reflect.Value{s.rcvr, argv, replyv}
	results := mType.method.Func.Call(args[:])
	if !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}

// decodeParams fills the exported fields of argv (a struct value) from
// positional params, in field declaration order.
func decodeParams(mType *methodType, params []json.RawMessage, argv reflect.Value) error {
	if len(params) != mType.numParams {
		return fmt.Errorf("expected %d params, got %d", mType.numParams, len(params))
	}
	for i, idx := range exportedFields(mType.ArgType) {
		field := argv.Field(idx)
		if err := json.Unmarshal(params[i], field.Addr().Interface()); err != nil {
			return fmt.Errorf("param %d (%s): %w", i, mType.ArgType.Field(idx).Name, err)
		}
	}
	return nil
}

func exportedFields(t reflect.Type) []int {
	var idx []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			idx = append(idx, i)
		}
	}
	return idx
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
