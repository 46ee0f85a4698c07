package demo

import (
	"reflect"
	"time"

	"github.com/vknair/orbit-rmi/orbit"
	"github.com/vknair/orbit-rmi/registry"
)

var (
	greeterType    = reflect.TypeOf((*Greeter)(nil)).Elem()
	translatorType = reflect.TypeOf((*Translator)(nil)).Elem()
	loggerType     = reflect.TypeOf((*Logger)(nil)).Elem()
	itemType       = reflect.TypeOf((*Item)(nil)).Elem()
	boxType        = reflect.TypeOf((*Box)(nil)).Elem()
	counterType    = reflect.TypeOf((*Counter)(nil)).Elem()
)

// RegisterAll registers every interface in this package with sp, in the
// fixed order required for both peers' method ids to agree. Callers on
// both ends of a connection must call this, or an equivalent explicit
// sequence of Space.RegisterRemotable calls, before dialing.
func RegisterAll(sp *orbit.Space) error {
	if err := sp.RegisterRemotable(greeterType, registry.WithStub(NewGreeterStub)); err != nil {
		return err
	}
	if err := sp.RegisterRemotable(translatorType,
		registry.WithStub(NewTranslatorStub),
		registry.WithPolicy("Translate", registry.Policy{ResponseTimeout: 300 * time.Millisecond}),
	); err != nil {
		return err
	}
	if err := sp.RegisterRemotable(loggerType,
		registry.WithStub(NewLoggerStub),
		registry.WithPolicy("Log", registry.Policy{NoReturn: true, Unreliable: true}),
	); err != nil {
		return err
	}
	if err := sp.RegisterRemotable(itemType, registry.WithStub(NewItemStub)); err != nil {
		return err
	}
	if err := sp.RegisterRemotable(boxType, registry.WithStub(NewBoxStub)); err != nil {
		return err
	}
	if err := sp.RegisterRemotable(counterType,
		registry.WithStub(NewCounterStub),
		registry.WithPolicy("Increment", registry.Policy{NonBlocking: true}),
	); err != nil {
		return err
	}
	return nil
}
