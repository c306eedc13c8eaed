package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

type fakeUpstreamDetail struct {
	status  int
	message string
}

func (f *fakeUpstreamDetail) Error() string           { return f.message }
func (f *fakeUpstreamDetail) UpstreamStatus() int     { return f.status }
func (f *fakeUpstreamDetail) UpstreamMessage() string { return f.message }

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("socket closed")
	err := Wrap(CodeUnavailable, cause, "upstream unreachable")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Code() != CodeUnavailable {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFound, "missing product")
	wrapped := Wrap(CodeDependency, inner, "lookup failed")

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected outermost typed error, got %v", typed)
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NO_SUCH_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestMetadataStatuses(t *testing.T) {
	t.Parallel()

	if MetadataFor(CodeUnavailable).HTTPStatus != http.StatusBadGateway {
		t.Fatal("expected 502 for upstream unavailable")
	}
	if !MetadataFor(CodeValidation).DetailsAllowed {
		t.Fatal("expected validation details to be exposable")
	}
	if MetadataFor(CodeUnauthorized).DetailsAllowed {
		t.Fatal("expected unauthorized details to be withheld")
	}
}

func TestDumpWalksChainAndExtractsUpstreamDetail(t *testing.T) {
	t.Parallel()

	detail := &fakeUpstreamDetail{status: 409, message: "duplicate email"}
	err := Wrap(CodeConflict, detail, "registration rejected")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if dump.UpstreamStatus != 409 || dump.UpstreamMessage != "duplicate email" {
		t.Fatalf("upstream detail not extracted: %+v", dump)
	}
}

func TestDumpNilError(t *testing.T) {
	t.Parallel()

	if dump := Dump(nil); dump.TopMessage != "" || len(dump.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", dump)
	}
}
