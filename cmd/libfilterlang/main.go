// Command libfilterlang builds the engine as a C shared library
// (go build -buildmode=c-shared). Every entity crosses the boundary as an
// opaque handle with paired create/free calls; strings are borrowed views
// copied on entry, never owned.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

// filterlang_parsing_result carries either a filter handle (ok true) or a
// rendered diagnostic (ok false). Free it with
// filterlang_free_parsing_result in both cases.
typedef struct {
	bool      ok;
	uintptr_t filter;
	char     *err;
} filterlang_parsing_result;
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/filterlang/filterlang"
)

//export filterlang_create_scheme
func filterlang_create_scheme() C.uintptr_t {
	return C.uintptr_t(cgo.NewHandle(filterlang.NewScheme()))
}

//export filterlang_free_scheme
func filterlang_free_scheme(scheme C.uintptr_t) {
	cgo.Handle(scheme).Delete()
}

//export filterlang_add_unsigned_type_field_to_scheme
func filterlang_add_unsigned_type_field_to_scheme(scheme C.uintptr_t, name *C.char) {
	schemeOf(scheme).AddField(C.GoString(name), filterlang.TypeUnsigned)
}

//export filterlang_add_ip_type_field_to_scheme
func filterlang_add_ip_type_field_to_scheme(scheme C.uintptr_t, name *C.char) {
	schemeOf(scheme).AddField(C.GoString(name), filterlang.TypeIP)
}

//export filterlang_add_bytes_type_field_to_scheme
func filterlang_add_bytes_type_field_to_scheme(scheme C.uintptr_t, name *C.char) {
	schemeOf(scheme).AddField(C.GoString(name), filterlang.TypeBytes)
}

//export filterlang_parse_filter
func filterlang_parse_filter(scheme C.uintptr_t, input *C.char) C.filterlang_parsing_result {
	f, err := schemeOf(scheme).Parse(C.GoString(input))
	if err != nil {
		return C.filterlang_parsing_result{ok: false, err: C.CString(err.Error())}
	}
	return C.filterlang_parsing_result{ok: true, filter: C.uintptr_t(cgo.NewHandle(f))}
}

//export filterlang_free_parsing_result
func filterlang_free_parsing_result(result C.filterlang_parsing_result) {
	if result.err != nil {
		C.free(unsafe.Pointer(result.err))
	}
	if result.ok {
		cgo.Handle(result.filter).Delete()
	}
}

//export filterlang_create_execution_context
func filterlang_create_execution_context() C.uintptr_t {
	return C.uintptr_t(cgo.NewHandle(filterlang.NewExecutionContext()))
}

//export filterlang_free_execution_context
func filterlang_free_execution_context(ctx C.uintptr_t) {
	cgo.Handle(ctx).Delete()
}

//export filterlang_add_unsigned_value_to_execution_context
func filterlang_add_unsigned_value_to_execution_context(ctx C.uintptr_t, name *C.char, value C.uint64_t) {
	contextOf(ctx).AddUnsigned(C.GoString(name), uint64(value))
}

//export filterlang_add_bytes_value_to_execution_context
func filterlang_add_bytes_value_to_execution_context(ctx C.uintptr_t, name *C.char, value *C.char) {
	contextOf(ctx).AddBytes(C.GoString(name), []byte(C.GoString(value)))
}

// filterlang_add_ip_value_to_execution_context silently ignores
// unparseable address text; callers needing feedback must validate first.
//
//export filterlang_add_ip_value_to_execution_context
func filterlang_add_ip_value_to_execution_context(ctx C.uintptr_t, name *C.char, value *C.char) {
	contextOf(ctx).AddIPString(C.GoString(name), C.GoString(value))
}

//export filterlang_match
func filterlang_match(filter C.uintptr_t, ctx C.uintptr_t) C.bool {
	f := cgo.Handle(filter).Value().(filterlang.Filter)
	return C.bool(contextOf(ctx).Execute(f))
}

func schemeOf(h C.uintptr_t) *filterlang.Scheme {
	return cgo.Handle(h).Value().(*filterlang.Scheme)
}

func contextOf(h C.uintptr_t) *filterlang.ExecutionContext {
	return cgo.Handle(h).Value().(*filterlang.ExecutionContext)
}

func main() {}
