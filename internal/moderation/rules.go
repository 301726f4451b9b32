// Package moderation screens listing images with two external classifiers.
//
// The general-purpose classifier runs first. The contraband classifier only runs
// when the general one finds nothing. Any classifier failure rejects the image.
package moderation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stage identifies which classifier produced a verdict.
type Stage int

const (
	StageGeneral Stage = iota + 1
	StageContraband
)

// String returns the stage name used in logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageGeneral:
		return "general"
	case StageContraband:
		return "contraband"
	default:
		return "unknown"
	}
}

// Rule flags a signal whose score is strictly greater than Cutoff.
type Rule struct {
	Signal string  `yaml:"signal"`
	Cutoff float64 `yaml:"cutoff"`
}

// RuleSet holds the rule table for each stage.
type RuleSet struct {
	General    []Rule `yaml:"general"`
	Contraband []Rule `yaml:"contraband"`
}

// ForStage returns the rules evaluated at stage.
func (rs RuleSet) ForStage(stage Stage) []Rule {
	if stage == StageContraband {
		return rs.Contraband
	}
	return rs.General
}

// Flag is a signal that crossed its cutoff.
type Flag struct {
	Signal string
	Score  float64
}

func (f Flag) String() string {
	return f.Signal + " (" + strconv.FormatFloat(f.Score, 'f', 2, 64) + ")"
}

// Evaluate applies rules to signals in rule order.
// Signal names match case-insensitively; a missing signal never flags.
func Evaluate(rules []Rule, signals map[string]float64) []Flag {
	var flags []Flag
	for _, r := range rules {
		score, ok := signals[strings.ToLower(r.Signal)]
		if ok && score > r.Cutoff {
			flags = append(flags, Flag{Signal: strings.ToLower(r.Signal), Score: score})
		}
	}
	return flags
}

// FormatReason renders flags as "flagged: weapon_firearm (0.95), gore.prob (0.70)".
func FormatReason(flags []Flag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = f.String()
	}
	return "flagged: " + strings.Join(parts, ", ")
}

// contrabandLabels are matched by the contraband classifier at contrabandCutoff.
var contrabandLabels = []string{
	"alcohol", "cigarette", "cigar", "hookah", "smoking", "drugs",
	"drug paraphernalia", "blunt", "joint", "substance use", "vape",
	"shisha", "bong", "beer", "whiskey", "wine", "vodka",
}

const contrabandCutoff = 0.45

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleSet {
	rs := RuleSet{
		General: []Rule{
			{Signal: "nudity.raw", Cutoff: 0.8},
			{Signal: "nudity.partial", Cutoff: 0.8},
			{Signal: "offensive.prob", Cutoff: 0.85},
			{Signal: "scam.prob", Cutoff: 0.9},
			{Signal: "drugs.prob", Cutoff: 0.6},
			{Signal: "gore.prob", Cutoff: 0.6},
			{Signal: "violence.prob", Cutoff: 0.9},
			{Signal: "weapon", Cutoff: 0.8},
			{Signal: "weapon_firearm", Cutoff: 0.8},
		},
	}
	for _, label := range contrabandLabels {
		rs.Contraband = append(rs.Contraband, Rule{Signal: label, Cutoff: contrabandCutoff})
	}
	return rs
}

// LoadRules reads a YAML rule table. A stage omitted from the file keeps its defaults.
// An empty path returns DefaultRules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read moderation rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule table and fills omitted stages from DefaultRules.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse moderation rules: %w", err)
	}

	defaults := DefaultRules()
	if len(rs.General) == 0 {
		rs.General = defaults.General
	}
	if len(rs.Contraband) == 0 {
		rs.Contraband = defaults.Contraband
	}

	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate rejects rules with blank signals or cutoffs outside [0, 1].
func (rs RuleSet) Validate() error {
	var errs []error
	for _, stage := range []Stage{StageGeneral, StageContraband} {
		for i, r := range rs.ForStage(stage) {
			if strings.TrimSpace(r.Signal) == "" {
				errs = append(errs, fmt.Errorf("%s rule %d: signal is required", stage, i))
			}
			if r.Cutoff < 0 || r.Cutoff > 1 {
				errs = append(errs, fmt.Errorf("%s rule %d (%s): cutoff %v out of range", stage, i, r.Signal, r.Cutoff))
			}
		}
	}
	return errors.Join(errs...)
}
