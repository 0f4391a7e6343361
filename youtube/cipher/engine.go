// Package cipher resolves obfuscated signature and throttle tokens
// against the platform's versioned player script.
//
// The primary path executes the script's own transformation function in
// a disposable JavaScript sandbox. When execution is unavailable or
// fails, the transformation is inferred from the script text as an
// ordered sequence of reverse / remove-at / swap-with-first operations,
// falling back to an empirically common default sequence. Decryption
// therefore degrades rather than fails: a wrong answer costs throughput
// or a rejected URL downstream, while a hard failure would drop the
// format entirely.
package cipher

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
)

// Call-site idioms that reveal the signature function name, in priority
// order. Each pattern has exactly one capture group: the name.
var sigFuncPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.sig\|\|([a-zA-Z0-9_$]+)\(`),
	regexp.MustCompile(`["']signature["']\s*,\s*([a-zA-Z0-9_$]+)\(`),
	regexp.MustCompile(`\.set\([^,()]+,\s*encodeURIComponent\s*\(\s*([a-zA-Z0-9_$]+)\(`),
	regexp.MustCompile(`\b([a-zA-Z0-9_$]{2,})\s*=\s*function\(\s*[a-zA-Z0-9_$]+\s*\)\s*\{\s*[a-zA-Z0-9_$]+\s*=\s*[a-zA-Z0-9_$]+\.split\(\s*(?:""|'')\s*\)`),
}

// Throttle-token call-site idiom: a.get("n")&&(b=FN(b)) or, with array
// indirection, a.get("n")&&(b=ARR[0](b)).
var (
	throttleFuncRe     = regexp.MustCompile(`\.get\(\s*"n"\s*\)\s*\)\s*&&\s*\(\s*[a-zA-Z0-9_$]+\s*=\s*([a-zA-Z0-9_$]+)(?:\[(\d+)\])?\(`)
	throttleNameArrRe  = `var\s+%s\s*=\s*\[\s*([a-zA-Z0-9_$]+)\s*\]`
	sigFuncBodyRe      = `(?:function\s+%[1]s|%[1]s\s*=\s*function)\s*\(\s*([a-zA-Z0-9_$]+)\s*\)\s*\{([^}]*)\}`
	helperObjLiteralRe = `(?:var|let|const)\s+%s\s*=\s*\{([\s\S]*?)\}\s*;`
)

var (
	helperMethodRe = regexp.MustCompile(`([a-zA-Z0-9_$]+)\s*:\s*function\s*\([^)]*\)\s*\{([^}]*)\}`)
	spliceArgRe    = regexp.MustCompile(`splice\(\s*(\d+)`)
	swapPatternRe  = regexp.MustCompile(`\[0\]\s*=\s*[a-zA-Z0-9_$]+\[(\d+)`)
	swapHintRe     = regexp.MustCompile(`\[0\]\s*=`)
	reverseRe      = regexp.MustCompile(`\breverse\b`)
	spliceRe       = regexp.MustCompile(`\bsplice\b`)
)

// Engine decrypts signature and throttle tokens. The operation-sequence
// cache, keyed by player script fingerprint, is its only state shared
// across calls; it is guarded for concurrent extractions with
// single-writer-wins semantics (a lost race recomputes an entry, never
// corrupts one).
type Engine struct {
	mu  sync.Mutex
	ops map[string][]Op
	log *logger.ComponentLogger
}

// NewEngine creates a transform engine with an empty cache.
func NewEngine() *Engine {
	return &Engine{
		ops: make(map[string][]Op),
		log: logger.WithComponent(logger.ComponentCipher),
	}
}

// DecryptSignature resolves an encrypted signature token. Strategies
// are tried in order: sandboxed execution of the script's own function,
// a heuristically inferred operation sequence, and finally the default
// sequence. The result of the op-sequence strategies is cached per
// script fingerprint.
func (e *Engine) DecryptSignature(script *PlayerScript, signature string) (string, error) {
	if signature == "" {
		return "", fmt.Errorf("%w: empty signature", errs.ErrCipherFailed)
	}

	if name, ok := findSignatureFunc(script.Body); ok {
		if out, err := execute(script, name, signature); err == nil && out != "" {
			e.log.Debug("signature resolved via script execution", map[string]any{"func": name})
			return out, nil
		} else if err != nil {
			e.log.Warn("script execution failed, falling back to inferred ops", map[string]any{"func": name, "error": err.Error()})
		}
	} else {
		e.log.Debug("no signature function call site matched, using inferred ops")
	}

	return Apply(e.opsFor(script), signature), nil
}

// DecryptThrottle resolves the throttle ("n") token. Only sandboxed
// execution can compute it; when that fails the original token passes
// through verbatim, which degrades throughput but never corrupts the
// download.
func (e *Engine) DecryptThrottle(script *PlayerScript, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty throttle token", errs.ErrCipherFailed)
	}

	name, ok := findThrottleFunc(script.Body)
	if !ok {
		e.log.Warn("throttle function not found, passing token through")
		return token, nil
	}
	out, err := execute(script, name, token)
	if err != nil || out == "" {
		e.log.Warn("throttle decryption failed, passing token through", map[string]any{"func": name, "error": fmt.Sprint(err)})
		return token, nil
	}
	return out, nil
}

// opsFor returns the operation sequence for the script, computing and
// caching it on first use.
func (e *Engine) opsFor(script *PlayerScript) []Op {
	key := script.Fingerprint()

	e.mu.Lock()
	ops, ok := e.ops[key]
	e.mu.Unlock()
	if ok {
		return ops
	}

	ops = inferOps(script.Body)
	e.log.Debug("inferred operation sequence", map[string]any{"fingerprint": key, "ops": fmt.Sprint(ops)})

	e.mu.Lock()
	e.ops[key] = ops
	e.mu.Unlock()
	return ops
}

func findSignatureFunc(body string) (string, bool) {
	for _, re := range sigFuncPatterns {
		if m := re.FindStringSubmatch(body); len(m) == 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

func findThrottleFunc(body string) (string, bool) {
	m := throttleFuncRe.FindStringSubmatch(body)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	name := m[1]
	if m[2] != "" {
		// Array indirection: resolve ARR[i] through var ARR=[fn].
		arrRe, err := regexp.Compile(fmt.Sprintf(throttleNameArrRe, regexp.QuoteMeta(name)))
		if err != nil {
			return "", false
		}
		am := arrRe.FindStringSubmatch(body)
		if len(am) != 2 {
			return "", false
		}
		name = am[1]
	}
	return name, true
}

// inferOps derives the transformation from the script text: locate the
// signature function, the helper object it delegates to, and classify
// each helper method by its dominant operation. The methods are taken
// in definition order. Any failed lookup yields the default sequence.
func inferOps(body string) []Op {
	name, ok := findSignatureFunc(body)
	if !ok {
		return defaultOps()
	}

	fnRe, err := regexp.Compile(fmt.Sprintf(sigFuncBodyRe, regexp.QuoteMeta(name)))
	if err != nil {
		return defaultOps()
	}
	fm := fnRe.FindStringSubmatch(body)
	if len(fm) != 3 {
		return defaultOps()
	}
	param, fnBody := fm[1], fm[2]

	helperRe, err := regexp.Compile(`([a-zA-Z0-9_$]+)\.[a-zA-Z0-9_$]+\(\s*` + regexp.QuoteMeta(param) + `\b`)
	if err != nil {
		return defaultOps()
	}
	hm := helperRe.FindStringSubmatch(fnBody)
	if len(hm) != 2 {
		return defaultOps()
	}

	objRe, err := regexp.Compile(fmt.Sprintf(helperObjLiteralRe, regexp.QuoteMeta(hm[1])))
	if err != nil {
		return defaultOps()
	}
	om := objRe.FindStringSubmatch(body)
	if len(om) != 2 {
		return defaultOps()
	}

	var ops []Op
	for _, mm := range helperMethodRe.FindAllStringSubmatch(om[1], -1) {
		ops = append(ops, classifyMethod(mm[2]))
	}
	if len(ops) == 0 {
		return defaultOps()
	}
	return ops
}

// classifyMethod maps a helper method body to its operation: reverse,
// splice (remove-at, index from splice's first numeric argument), or
// an index swap with position 0. Unrecognized bodies default to
// reverse.
func classifyMethod(methodBody string) Op {
	if reverseRe.MatchString(methodBody) {
		return Op{Kind: OpReverse}
	}
	if spliceRe.MatchString(methodBody) {
		arg := 0
		if m := spliceArgRe.FindStringSubmatch(methodBody); len(m) == 2 {
			if v, err := strconv.Atoi(m[1]); err == nil {
				arg = v
			}
		}
		return Op{Kind: OpRemoveAt, Arg: arg}
	}
	if swapHintRe.MatchString(methodBody) {
		arg := 1
		if m := swapPatternRe.FindStringSubmatch(methodBody); len(m) == 2 {
			if v, err := strconv.Atoi(m[1]); err == nil {
				arg = v
			}
		}
		return Op{Kind: OpSwapFront, Arg: arg}
	}
	return Op{Kind: OpReverse}
}
