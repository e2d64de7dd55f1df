package token

// Set is a fixed membership table over token kinds.
type Set [kindCount]bool

func NewSet(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s *Set) Has(k Kind) bool {
	return int(k) < len(s) && s[k]
}

func (s *Set) Kinds() []Kind {
	var out []Kind
	for k, ok := range s {
		if ok {
			out = append(out, Kind(k))
		}
	}
	return out
}

var (
	// Mergeable kinds collapse when they appear in an unbroken run.
	Mergeable = NewSet(
		Comment,
		UnbufferedComment,
		EOL,
		Indent,
		AttrValue,
		Identifier,
		JSCodeBlock,
		JSExpr,
		StyleBlock,
		FilterCode,
		JSMixinParams,
	)

	// LineBreaks end a logical line.
	LineBreaks = NewSet(EOL, Indent)

	Comments = NewSet(Comment, UnbufferedComment)

	// Content kinds hold a block of foreign text. The classifier may turn
	// them into Embedded tokens.
	Content = NewSet(JSCodeBlock, StyleBlock, FilterCode)

	// Interpolating kinds may contain #{...} spans that the splitter cuts out.
	Interpolating = NewSet(Text)

	// Keywords reliably start a new statement.
	Keywords = NewSet(
		CondKeyword,
		EachKeyword,
		CaseKeyword,
		IncludeKeyword,
		ExtendsKeyword,
		MixinKeyword,
		DoctypeKeyword,
		YieldKeyword,
	)
)

// IsLineBreak reports whether k ends a logical line.
func IsLineBreak(k Kind) bool {
	return LineBreaks.Has(k)
}
