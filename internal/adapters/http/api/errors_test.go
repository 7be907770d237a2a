package api

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	convey.Convey("Given classified API errors", t, func() {
		cause := errors.New("boom")

		convey.So(errors.Is(NewKind("op", ErrBadRequest), ErrBadRequest), convey.ShouldBeTrue)
		wrapped := WrapKind("op", ErrBackpressure, cause)
		convey.So(errors.Is(wrapped, ErrBackpressure), convey.ShouldBeTrue)
		convey.So(errors.Is(wrapped, cause), convey.ShouldBeTrue)
		convey.So(wrapped.Error(), convey.ShouldEqual, "op: backpressure: boom")
		convey.So(Wrap("op", cause).Error(), convey.ShouldEqual, "op: boom")
		convey.So(getErrorType(409), convey.ShouldEqual, "conflict")
		convey.So(getErrorType(503), convey.ShouldEqual, "server_error")
	})
}
