package pipeline

// Stage names the step a pipeline run is in. A Failure records the stage
// it happened in.
type Stage string

const (
	StageLoading   Stage = "loading"
	StageResolving Stage = "resolving"
	StageStaging   Stage = "staging"
	StageCompiling Stage = "compiling"
	StageReading   Stage = "reading"
	StageDone      Stage = "done"
)

// FailureKind classifies why a run produced no artifact.
type FailureKind string

const (
	// KindInput: the document set itself is unusable (empty, no entry,
	// path collision).
	KindInput FailureKind = "input"
	// KindCompile: the compiler ran and rejected the documents.
	KindCompile FailureKind = "compile"
	// KindEnvironment: compiler missing, timeout, cancellation, missing
	// artifact, storage errors, recovered panics.
	KindEnvironment FailureKind = "environment"
	// KindIO: staging files could not be written.
	KindIO FailureKind = "io"
)

// Result is either Success or *Failure.
type Result interface {
	isResult()
}

// Success carries the compiled artifact bytes. It is only produced when the
// compiler exited zero and the artifact was read.
type Success struct {
	Artifact []byte
}

// Failure describes a run that produced no artifact. Log holds compiler
// output when the compiler was reached.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Stage   Stage       `json:"stage"`
	Message string      `json:"error"`
	Log     string      `json:"log,omitempty"`
}

func (Success) isResult()  {}
func (*Failure) isResult() {}

func (f *Failure) Error() string { return f.Message }

// Outcome is the metrics label for a result.
func Outcome(r Result) string {
	if f, ok := r.(*Failure); ok {
		return string(f.Kind)
	}
	return "success"
}
