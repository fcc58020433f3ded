package marketpack

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"marketgate/internal/compliance/screening"
	id "marketgate/pkg/domain"
	dErrors "marketgate/pkg/domain-errors"
)

//go:embed packs/*.yaml
var builtinFS embed.FS

// packFile is the on-disk YAML shape of a pack.
type packFile struct {
	ID              string  `yaml:"market_pack_id"`
	Version         string  `yaml:"version"`
	Name            string  `yaml:"name"`
	DepositCapRatio float64 `yaml:"deposit_cap_ratio"`
	RentIncrease    struct {
		BasePercent        float64 `yaml:"base_percent"`
		CPIMultiplier      float64 `yaml:"cpi_multiplier"`
		MaxPercent         float64 `yaml:"max_percent"`
		MinNoticeDays      int     `yaml:"min_notice_days"`
		FallbackCPIPercent float64 `yaml:"fallback_cpi_percent"`
	} `yaml:"rent_increase"`
	BrokerFee struct {
		TenantPayProhibited bool `yaml:"tenant_pay_prohibited"`
		DisclosureRequired  bool `yaml:"disclosure_required"`
	} `yaml:"broker_fee"`
	Screening struct {
		EarliestStage string `yaml:"earliest_stage"`
	} `yaml:"screening"`
	Disclosures []struct {
		Type           string `yaml:"type"`
		RequiredBefore string `yaml:"required_before"`
	} `yaml:"disclosures"`
}

func (f packFile) toPack() Pack {
	p := Pack{
		ID:                           id.MarketID(f.ID),
		Version:                      f.Version,
		Name:                         f.Name,
		DepositCapRatio:              f.DepositCapRatio,
		MinNoticeDays:                f.RentIncrease.MinNoticeDays,
		FallbackCPIPercent:           f.RentIncrease.FallbackCPIPercent,
		BrokerFeeTenantPayProhibited: f.BrokerFee.TenantPayProhibited,
		BrokerFeeDisclosureRequired:  f.BrokerFee.DisclosureRequired,
		EarliestScreeningStage:       screening.Stage(f.Screening.EarliestStage),
		RentIncreaseCap: RentIncreaseCap{
			BasePercent:   f.RentIncrease.BasePercent,
			CPIMultiplier: f.RentIncrease.CPIMultiplier,
			MaxPercent:    f.RentIncrease.MaxPercent,
		},
	}
	for _, d := range f.Disclosures {
		p.Disclosures = append(p.Disclosures, Disclosure{
			Type:           strings.TrimSpace(d.Type),
			RequiredBefore: Transition(d.RequiredBefore),
		})
	}
	return p
}

// Parse decodes and validates one YAML pack. Unknown keys are rejected so a
// misspelled knob cannot silently fall back to its zero value.
func Parse(r io.Reader) (Pack, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f packFile
	if err := dec.Decode(&f); err != nil {
		return Pack{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode market pack")
	}
	p := f.toPack()
	if err := p.Validate(); err != nil {
		return Pack{}, err
	}
	return p, nil
}

// Builtin returns the packs compiled into the binary, sorted by ID.
func Builtin() ([]Pack, error) {
	return loadFS(builtinFS, "packs")
}

// LoadDir reads every *.yaml and *.yml pack in dir, sorted by ID.
func LoadDir(dir string) ([]Pack, error) {
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, root string) ([]Pack, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read market pack dir: %w", err)
	}
	var packs []Pack
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read market pack %s: %w", e.Name(), err)
		}
		p, err := Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("market pack %s: %w", e.Name(), err)
		}
		packs = append(packs, p)
	}
	if len(packs) == 0 {
		return nil, errors.New("no market packs found")
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs, nil
}
