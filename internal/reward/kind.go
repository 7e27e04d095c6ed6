package reward

// #region kind

// Kind classifies how a reward model relates to an ensemble. Computed once at
// construction so call sites never repeat type inspection.
type Kind int

const (
	// KindPlain is a single reward function, possibly behind wrappers that do
	// not contain an ensemble.
	KindPlain Kind = iota
	// KindEnsemble is a bare ensemble.
	KindEnsemble
	// KindWrappedEnsemble is an ensemble behind the recognized std-bonus
	// wrapper.
	KindWrappedEnsemble
	// KindInvalidWrap is an ensemble behind any other wrapper.
	KindInvalidWrap
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindEnsemble:
		return "ensemble"
	case KindWrappedEnsemble:
		return "wrapped_ensemble"
	case KindInvalidWrap:
		return "invalid_wrap"
	default:
		return "unknown"
	}
}

// #endregion kind

// #region classify

// Classify tags a reward model and, when ensemble-backed, returns the
// underlying ensemble.
func Classify(m Model) (Kind, *Ensemble) {
	if e, ok := m.(*Ensemble); ok {
		return KindEnsemble, e
	}
	w, ok := m.(Wrapper)
	if !ok {
		return KindPlain, nil
	}
	e, ok := w.Base().(*Ensemble)
	if !ok {
		return KindPlain, nil
	}
	if _, ok := m.(*StdBonusWrapper); ok {
		return KindWrappedEnsemble, e
	}
	return KindInvalidWrap, e
}

// #endregion classify
