package genesis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource []byte

// LoadConfig reads a CUE genesis configuration. The file is unified with
// the #Genesis schema, which supplies defaults and range constraints,
// then checked with Validate. Every failure is an *Error with
// CodeInvalidConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{Code: CodeInvalidConfig, Message: "read config", Err: err}
	}
	return ParseConfig(data, path)
}

// ParseConfig is LoadConfig over in-memory CUE source. filename is used
// in error positions only.
func ParseConfig(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile genesis schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Genesis"))

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, &Error{Code: CodeInvalidConfig, Message: "parse config", Err: cueError(err)}
	}

	value := def.Unify(user)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &Error{Code: CodeInvalidConfig, Message: "config does not match schema", Err: cueError(err)}
	}

	// Export through JSON so address and key fields use their text
	// unmarshalers.
	raw, err := value.MarshalJSON()
	if err != nil {
		return Config{}, &Error{Code: CodeInvalidConfig, Message: "export config", Err: cueError(err)}
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, &Error{Code: CodeInvalidConfig, Message: "decode config", Err: err}
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = cfg.Chain.ChainID()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// cueError flattens a CUE error list into one error carrying positions.
func cueError(err error) error {
	return fmt.Errorf("%s", errors.Details(err, nil))
}
