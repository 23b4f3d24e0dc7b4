package agent

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource describes the tool input. Definitions are closed, so
// unknown top-level keys are rejected along with wrong types.
const schemaSource = `
#Direction: "asc" | "desc"
#OrderBy: {[string]: #Direction | {[string]: #Direction}}
#Fields: {[string]: true}

#ListInput: {
	model: =~"\\S"
	where?: {[string]: _}
	orderBy?: #OrderBy | [...#OrderBy]
	select?: {[string]: true | {select: #Fields}}
	take?: int & >=1 & <=%d
	skip?: int & >=0
	"_count"?: true | #Fields
	"_sum"?: #Fields
	"_avg"?: #Fields
	"_min"?: #Fields
	"_max"?: #Fields
}
`

type schema struct {
	ctx   *cue.Context
	input cue.Value
}

func compileSchema(maxTake int) (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(fmt.Sprintf(schemaSource, maxTake), cue.Filename("list.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	input := v.LookupPath(cue.ParsePath("#ListInput"))
	if err := input.Err(); err != nil {
		return nil, fmt.Errorf("lookup input schema: %w", err)
	}
	return &schema{ctx: ctx, input: input}, nil
}

// validate checks raw JSON against the input definition.
func (s *schema) validate(raw []byte) error {
	data := s.ctx.CompileBytes(raw, cue.Filename("input.json"))
	if err := data.Err(); err != nil {
		return fmt.Errorf("input is not valid JSON: %s", firstLine(err.Error()))
	}
	if err := s.input.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("input does not match the schema: %s", firstLine(err.Error()))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
