package cipher

import (
	"errors"
	"testing"

	"github.com/ytget/ytfetch/errs"
)

// A script whose transformation function actually runs: reverse, remove
// the char at index 1, swap the front char with index 2.
const execScript = `
var GT={
wA:function(a){a.reverse()},
xB:function(a,b){a.splice(b,1)},
yC:function(a,b){var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c}
};
var decode=function(a){a=a.split("");GT.wA(a,72);GT.xB(a,1);GT.yC(a,2);return a.join("")};
function wire(h,s){h.set("signature",decode(s))}
`

// A script whose function is only recognizable as text; its call site
// lives in a comment so nothing executes it.
const inferScript = `
var Wq={
r9:function(a){a.reverse()},
s3:function(a){a.splice(2,1)},
t7:function(a,b){var c=a[0];a[0]=a[5%a.length];a[5%a.length]=c}
};
var mangle=function(a){a=a.split("");Wq.r9(a,44);Wq.s3(a,2);Wq.t7(a,5);return a.join("")};
// h.set("signature",mangle(s))
`

func TestDecryptSignatureViaExecution(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/8e20ccbf/base.js", execScript)

	got, err := e.DecryptSignature(s, "abcdef")
	if err != nil {
		t.Fatalf("DecryptSignature: %v", err)
	}
	if got != "cdfba" {
		t.Errorf("DecryptSignature = %q, want %q", got, "cdfba")
	}
}

func TestDecryptSignatureEmptyToken(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("", "var a=1;")
	_, err := e.DecryptSignature(s, "")
	if !errors.Is(err, errs.ErrCipherFailed) {
		t.Errorf("error = %v, want ErrCipherFailed for empty signature", err)
	}
}

func TestDecryptThrottleEmptyToken(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("", "var a=1;")
	_, err := e.DecryptThrottle(s, "")
	if !errors.Is(err, errs.ErrCipherFailed) {
		t.Errorf("error = %v, want ErrCipherFailed for empty throttle token", err)
	}
}

func TestDecryptSignatureDefaultFallback(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/feed0000/base.js", "var nothing=true;")

	sig := "0123456789abcdefghijklmnopqrstuvwxyzABCDEF"
	got, err := e.DecryptSignature(s, sig)
	if err != nil {
		t.Fatalf("DecryptSignature: %v", err)
	}
	if want := Apply(defaultOps(), sig); got != want {
		t.Errorf("DecryptSignature = %q, want default-sequence result %q", got, want)
	}
}

func TestDecryptSignatureExecutionFailureFallsBack(t *testing.T) {
	// The call site names a function the script never defines, so both
	// interpreters fail at evaluation and the inferred-ops path runs.
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/dead0000/base.js", `h.set("signature",broken(s));`)

	sig := "abcdefghij"
	got, err := e.DecryptSignature(s, sig)
	if err != nil {
		t.Fatalf("DecryptSignature: %v", err)
	}
	if want := Apply(defaultOps(), sig); got != want {
		t.Errorf("DecryptSignature = %q, want %q", got, want)
	}
}

func TestInferOps(t *testing.T) {
	got := inferOps(inferScript)
	want := []Op{
		{Kind: OpReverse},
		{Kind: OpRemoveAt, Arg: 2},
		{Kind: OpSwapFront, Arg: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("inferOps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInferOpsUnparseable(t *testing.T) {
	got := inferOps("var nothing=true;")
	want := defaultOps()
	if len(got) != len(want) {
		t.Fatalf("inferOps = %v, want default %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFindSignatureFunc(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"sig property", `c.sig||Xa(c.s)`, "Xa", true},
		{"set signature", `d.set("signature",Yb(e))`, "Yb", true},
		{"encodeURIComponent", `c.set(d,encodeURIComponent(Zc(e)))`, "Zc", true},
		{"split assignment", `Wd=function(a){a=a.split("");return a.join("")}`, "Wd", true},
		{"nothing", `var a=1;`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findSignatureFunc(tt.body)
			if ok != tt.ok || got != tt.want {
				t.Errorf("findSignatureFunc = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDecryptThrottle(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/8e20ccbf/base.js", `
var nDec=function(a){return a.split("").reverse().join("")};
// d.get("n"))&&(c=nDec(c))
`)

	got, err := e.DecryptThrottle(s, "abc")
	if err != nil {
		t.Fatalf("DecryptThrottle: %v", err)
	}
	if got != "cba" {
		t.Errorf("DecryptThrottle = %q, want %q", got, "cba")
	}
}

func TestDecryptThrottleArrayIndirection(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/8e20ccbf/base.js", `
var nDec=function(a){return a.split("").reverse().join("")};
var nArr=[nDec];
// d.get("n"))&&(c=nArr[0](c))
`)

	got, err := e.DecryptThrottle(s, "xyz")
	if err != nil {
		t.Fatalf("DecryptThrottle: %v", err)
	}
	if got != "zyx" {
		t.Errorf("DecryptThrottle = %q, want %q", got, "zyx")
	}
}

func TestDecryptThrottlePassthrough(t *testing.T) {
	e := NewEngine()
	s := NewPlayerScript("https://www.youtube.com/s/player/8e20ccbf/base.js", "var nothing=true;")

	got, err := e.DecryptThrottle(s, "keepme")
	if err != nil {
		t.Fatalf("DecryptThrottle: %v", err)
	}
	if got != "keepme" {
		t.Errorf("DecryptThrottle = %q, want verbatim %q", got, "keepme")
	}
}

func TestEngineCachesOpsByFingerprint(t *testing.T) {
	e := NewEngine()
	scriptURL := "https://www.youtube.com/s/player/cafe1234/base.js"

	plain := NewPlayerScript(scriptURL, "var nothing=true;")
	first := e.opsFor(plain)

	// Same player version, different body: the cached sequence wins
	// even though this body would infer a different one.
	rich := NewPlayerScript(scriptURL, inferScript)
	second := e.opsFor(rich)

	if len(first) != len(second) {
		t.Fatalf("cache miss: got %v then %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cache miss: got %v then %v", first, second)
		}
	}

	fresh := inferOps(inferScript)
	if len(fresh) == len(second) && fresh[1] == second[1] {
		t.Error("inferred ops should differ from the cached default sequence")
	}
}
