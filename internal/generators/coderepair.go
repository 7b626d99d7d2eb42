package generators

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fix names one rewrite RepairCode applied.
type Fix struct {
	Name        string
	Description string
}

var (
	fixIntent = regexp.MustCompile(`\b(fix|fixing|debug|bug|bugs|broken|error|errors|not working|doesn't work|does not work|wrong with|correct this|repair)\b`)

	// structure that prose does not have; a bare keyword such as "let" or "return" is not enough
	codeStructure = []*regexp.Regexp{
		regexp.MustCompile("```"),
		regexp.MustCompile(`\bfunction\s*[A-Za-z_$]*\s*\(`),
		regexp.MustCompile(`=>`),
		regexp.MustCompile(`\bconsole\.\w+\(`),
		regexp.MustCompile(`\b(?:const|let|var)\s+[A-Za-z_$][\w$]*\s*=[^=]`),
		regexp.MustCompile(`(?m)^\s*import\s.*\bfrom\s+['"]`),
		regexp.MustCompile(`(?m)^\s*(?:import\s+[\w.]+\s*$|from\s+[\w.]+\s+import\s)`),
		regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(.*\)\s*:`),
		regexp.MustCompile(`(?m)[;{}]\s*$`),
	}

	// rewrites below are JavaScript/TypeScript only
	jsLangs = map[string]bool{
		"": true, "js": true, "javascript": true, "jsx": true, "mjs": true, "node": true,
		"ts": true, "typescript": true, "tsx": true,
	}
	pythonShape = regexp.MustCompile(`(?m)^\s*(?:def\s+\w+\s*\(.*\)\s*:|class\s+\w+.*:\s*$|from\s+[\w.]+\s+import\s|import\s+[\w.]+\s*$)`)

	stringLiteral = regexp.MustCompile("\"(?:[^\"\\\\\n]|\\\\.)*\"|'(?:[^'\\\\\n]|\\\\.)*'|`(?:[^`\\\\]|\\\\.)*`")
	placeholder   = regexp.MustCompile("\x00(\\d+)\x00")

	fencedCode  = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[ \\t]*\\n?(.*?)```")
	instruction = regexp.MustCompile(`(?is)^\s*(?:please\s+)?(?:(?:can|could|would)\s+you\s+)?(?:please\s+)?(?:help\s+(?:me\s+)?)?(?:fix|debug|repair|correct|check)\b[^:?\n]*[:?]\s*`)

	loopBound     = regexp.MustCompile(`(for\s*\([^;]*;\s*[A-Za-z_$][\w$]*\s*)<=(\s*[A-Za-z_$][\w$.\[\]]*\.length\s*;)`)
	assignInCond  = regexp.MustCompile(`\b(if|while)\s*\(\s*([A-Za-z_$][\w$.\[\]]*)\s*=\s*([^=\s)][^)]*?)\s*\)`)
	missingParens = regexp.MustCompile(`(?m)\.(toUpperCase|toLowerCase|trim|trimStart|trimEnd|pop|shift|reverse|sort|toString)(\s*[;,)\]}]|\s*$)`)
	propertyChain = regexp.MustCompile(`([A-Za-z_$][\w$]*)\.([A-Za-z_$][\w$]*)\.([A-Za-z_$][\w$]*)`)
	chainBuiltins = map[string]bool{
		"console": true, "Math": true, "JSON": true, "Object": true, "Array": true, "Number": true,
		"String": true, "Promise": true, "document": true, "window": true, "process": true,
		"module": true, "exports": true, "this": true, "React": true,
	}
)

// LooksLikeCodeFix reports whether lower asks to fix or debug a piece of code that is
// included in the prompt.
func LooksLikeCodeFix(lower string) bool {
	if !fixIntent.MatchString(lower) {
		return false
	}
	for _, re := range codeStructure {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractCode isolates the code payload: the first fenced block if any, otherwise the text
// after an instruction such as "fix this:", minus leading prose lines.
func ExtractCode(raw string) (code, lang string) {
	if m := fencedCode.FindStringSubmatch(raw); m != nil {
		return strings.TrimRight(m[2], " \t\n"), strings.ToLower(m[1])
	}
	s := instruction.ReplaceAllString(raw, "")
	lines := strings.Split(s, "\n")
	for len(lines) > 1 && isProse(lines[0]) {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), ""
}

func isProse(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return true
	}
	return !strings.ContainsAny(t, ";{}()=[]") && !strings.HasPrefix(t, "//")
}

// RepairCode applies the common-bug rewrites to the code in raw. Each rewrite only fires when
// its pattern is present, so code without those bugs comes back unchanged. Code in another
// language than JavaScript or TypeScript is never rewritten.
func RepairCode(raw string) (string, []Fix) {
	code, lang := ExtractCode(raw)
	if !rewritable(code, lang) {
		return code, nil
	}
	return repair(code)
}

func rewritable(code, lang string) bool {
	if !jsLangs[lang] {
		return false
	}
	return lang != "" || !pythonShape.MatchString(code)
}

// maskStrings swaps string and template literals for numbered placeholders so the rewrites
// cannot reach into them.
func maskStrings(code string) (string, []string) {
	var lits []string
	masked := stringLiteral.ReplaceAllStringFunc(code, func(lit string) string {
		lits = append(lits, lit)
		return fmt.Sprintf("\x00%d\x00", len(lits)-1)
	})
	return masked, lits
}

func unmaskStrings(code string, lits []string) string {
	return placeholder.ReplaceAllStringFunc(code, func(ph string) string {
		i, err := strconv.Atoi(strings.Trim(ph, "\x00"))
		if err != nil || i >= len(lits) {
			return ph
		}
		return lits[i]
	})
}

func repair(source string) (string, []Fix) {
	var fixes []Fix
	code, lits := maskStrings(source)

	if out := loopBound.ReplaceAllString(code, "${1}<${2}"); out != code {
		code = out
		fixes = append(fixes, Fix{"off-by-one loop bound", "`<=` against `.length` reads one element past the end; the bound is now `<`."})
	}
	if out := assignInCond.ReplaceAllString(code, "$1 ($2 === $3)"); out != code {
		code = out
		fixes = append(fixes, Fix{"assignment in condition", "`=` inside a condition assigns instead of comparing; it is now a strict `===` comparison."})
	}
	if out := missingParens.ReplaceAllString(code, ".${1}()${2}"); out != code {
		code = out
		fixes = append(fixes, Fix{"missing call parentheses", "a method was referenced without being called; `()` was added."})
	}
	if out := optionalChain(code); out != code {
		code = out
		fixes = append(fixes, Fix{"unguarded property access", "nested property access could throw on `undefined`; it now uses optional chaining (`?.`)."})
	}
	if len(fixes) == 0 {
		return source, nil
	}
	return unmaskStrings(code, lits), fixes
}

func optionalChain(code string) string {
	matches := propertyChain.FindAllStringSubmatchIndex(code, -1)
	if len(matches) == 0 {
		return code
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		first := code[m[2]:m[3]]
		if chainBuiltins[first] || start > 0 && strings.ContainsRune(".$_?", rune(code[start-1])) || startsWithDigitOrWordBefore(code, start) {
			continue
		}
		if !chainGuardable(code[end:]) {
			continue
		}
		b.WriteString(code[last:start])
		fmt.Fprintf(&b, "%s?.%s?.%s", first, code[m[4]:m[5]], code[m[6]:m[7]])
		last = end
	}
	b.WriteString(code[last:])
	return b.String()
}

func startsWithDigitOrWordBefore(code string, start int) bool {
	if start == 0 {
		return false
	}
	c := code[start-1]
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// chainGuardable rejects chains that are called or assigned to, where ?. would change meaning
// or not compile.
func chainGuardable(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '(', '.', '`':
		return false
	case '=':
		return len(rest) > 1 && rest[1] == '='
	case '+', '-', '*', '/', '%', '&', '|', '^':
		if len(rest) > 1 && (rest[1] == '=' || rest[1] == rest[0] && (rest[0] == '+' || rest[0] == '-')) {
			return false
		}
	}
	return true
}

// CodeRepair renders the result of RepairCode for a prompt.
func CodeRepair(raw, _ string) string {
	code, lang := ExtractCode(raw)
	if strings.TrimSpace(code) == "" {
		return "## Code Review\n\nPlease paste the code you'd like me to look at, ideally inside a ``` code block, along with any error message you see."
	}
	js := rewritable(code, lang)
	fixed, fixes := code, []Fix(nil)
	switch {
	case js:
		fixed, fixes = repair(code)
		if lang == "" {
			lang = "javascript"
		}
	case lang == "":
		lang = "python"
	}

	var b strings.Builder
	b.WriteString("## Code Review\n\n")
	if !js {
		fmt.Fprintf(&b, "My automatic checks cover JavaScript and TypeScript, so I left this %s code untouched:\n\n", lang)
	} else if len(fixes) == 0 {
		b.WriteString("I didn't find any of the common bugs I check for (off-by-one loop bounds, assignments inside conditions, missing call parentheses and unguarded nested property access). Here is your code as-is:\n\n")
	} else {
		fmt.Fprintf(&b, "I found and fixed %d issue%s:\n\n", len(fixes), plural(len(fixes)))
		for i, f := range fixes {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, capitalize(f.Name), f.Description)
		}
		b.WriteString("\n**Corrected code:**\n\n")
	}
	fmt.Fprintf(&b, "```%s\n%s\n```", lang, fixed)
	if len(fixes) == 0 {
		b.WriteString("\n\nIf it still misbehaves, share the error message or the expected versus actual output and I'll dig deeper.")
	} else {
		b.WriteString("\n\nRun it again and let me know if anything else looks off.")
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
