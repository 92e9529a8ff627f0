package model

// Kind enumerates the closed set of fitted-model structures the compiler
// has producers for. Dispatch over this tag is explicit and exhaustive;
// there is no hidden class-based dispatch.
type Kind string

const (
	KindLinear Kind = "linear"
	KindGLM    Kind = "glm"
	KindGLMNet Kind = "glmnet"
	KindGBM    Kind = "gbm"
	KindForest Kind = "forest"
)

// Kinds returns every supported model kind
func Kinds() []Kind {
	return []Kind{KindLinear, KindGLM, KindGLMNet, KindGBM, KindForest}
}

// Family is the response distribution of a fitted model
type Family string

const (
	FamilyGaussian    Family = "gaussian"
	FamilyBinomial    Family = "binomial"
	FamilyPoisson     Family = "poisson"
	FamilyMultinomial Family = "multinomial"
	FamilyCox         Family = "cox"
)

// Link is the link function tag carried by GLM-shaped models
type Link string

const (
	LinkIdentity Link = "identity"
	LinkLogit    Link = "logit"
	LinkProbit   Link = "probit"
	LinkCloglog  Link = "cloglog"
	LinkLog      Link = "log"
)

// FittedModel is the opaque state a fitting library hands the compiler:
// an associative structure of arrays, scalars, and factor tables. The
// compiler never fits; it only reads this state.
type FittedModel struct {
	Kind  Kind
	State map[string]any
}
