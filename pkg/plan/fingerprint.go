package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// fingerprintView carries every field of Plan that the fingerprint is
// computed over, deliberately omitting CreatedAt and Fingerprint itself so
// that two ingests of content-identical plans (made at different times, or
// re-fingerprinted) hash identically (§8 property 3 analog for plans).
type fingerprintView struct {
	SourceVersion   string
	PlanningOptions PlanningOptions
	Plays           []Play
	Hosts           []Host
	Groups          []Group
	GlobalVariables map[string]Value
}

// Fingerprint computes a deterministic digest over p's content, excluding
// wall-clock fields, and returns it as a lowercase hex string. encoding/json
// sorts map keys, so the output is stable across repeated marshals of
// equivalent content.
func Fingerprint(p *Plan) (string, error) {
	view := fingerprintView{
		SourceVersion:   p.SourceVersion,
		PlanningOptions: p.PlanningOptions,
		Plays:           p.Plays,
		Hosts:           p.Hosts,
		Groups:          p.Groups,
		GlobalVariables: p.GlobalVariables,
	}
	data, err := json.Marshal(view)
	if err != nil {
		return "", errors.Wrap(err, "fingerprint: failed to marshal plan content")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
