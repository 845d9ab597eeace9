package calc

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		IMTs:              []string{"SA(0.5)", "PGA"},
		PoesDisagg:        []float64{0.1, 0.02},
		MagBinWidth:       0.5,
		DistBinWidth:      100,
		CoordBinWidth:     1,
		TruncationLevel:   3,
		NumEpsilonBins:    4,
		MaximumDistance:   map[string]float64{"default": 200},
		InvestigationTime: 50,
	}
}

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg, err := validConfig().normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RunID == "" {
		t.Fatal("expected a generated run id")
	}
	if cfg.MaxSitesDisagg != DefaultMaxSites {
		t.Fatalf("max sites = %d, want %d", cfg.MaxSitesDisagg, DefaultMaxSites)
	}
	if cfg.ConcurrentTasks != 1 {
		t.Fatalf("concurrent tasks = %d, want 1", cfg.ConcurrentTasks)
	}
	if cfg.IMTs[0] != "PGA" || cfg.IMTs[1] != "SA(0.5)" {
		t.Fatalf("imts not sorted: %v", cfg.IMTs)
	}
	if cfg.PoesDisagg[0] != 0.02 || cfg.PoesDisagg[1] != 0.1 {
		t.Fatalf("poes not sorted ascending: %v", cfg.PoesDisagg)
	}
}

func TestConfigModeExclusivity(t *testing.T) {
	both := validConfig()
	both.IMLDisagg = map[string]float64{"PGA": 0.1}
	if _, err := both.normalize(); err == nil {
		t.Fatal("expected error when both modes are set")
	}

	neither := validConfig()
	neither.PoesDisagg = nil
	if _, err := neither.normalize(); err == nil {
		t.Fatal("expected error when neither mode is set")
	}
}

func TestConfigDirectModeDerivesIMTs(t *testing.T) {
	cfg := validConfig()
	cfg.PoesDisagg = nil
	cfg.IMTs = nil
	cfg.IMLDisagg = map[string]float64{"SA(1.0)": 0.2, "PGA": 0.1}
	got, err := cfg.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(got.IMTs) != 2 || got.IMTs[0] != "PGA" || got.IMTs[1] != "SA(1.0)" {
		t.Fatalf("derived imts = %v", got.IMTs)
	}

	cfg.IMTs = []string{"PGA"}
	if _, err := cfg.normalize(); err == nil {
		t.Fatal("expected error when imts are set alongside iml_disagg")
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		warp func(*Config)
	}{
		{"zero mag width", func(c *Config) { c.MagBinWidth = 0 }},
		{"negative dist width", func(c *Config) { c.DistBinWidth = -1 }},
		{"zero coord width", func(c *Config) { c.CoordBinWidth = 0 }},
		{"zero truncation", func(c *Config) { c.TruncationLevel = 0 }},
		{"no eps bins", func(c *Config) { c.NumEpsilonBins = 0 }},
		{"zero investigation time", func(c *Config) { c.InvestigationTime = 0 }},
		{"poe at one", func(c *Config) { c.PoesDisagg = []float64{1} }},
		{"poe at zero", func(c *Config) { c.PoesDisagg = []float64{0} }},
		{"no imts", func(c *Config) { c.IMTs = nil }},
		{"duplicate imts", func(c *Config) { c.IMTs = []string{"PGA", "PGA"} }},
		{"no maximum distance", func(c *Config) { c.MaximumDistance = nil }},
		{"negative maximum distance", func(c *Config) { c.MaximumDistance = map[string]float64{"default": -5} }},
		{"unknown output kind", func(c *Config) { c.Outputs = []string{"Mag_Eps"} }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.warp(&cfg)
		if _, err := cfg.normalize(); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
}

func TestConfigMaxDistFor(t *testing.T) {
	cfg := validConfig()
	cfg.MaximumDistance = map[string]float64{"Active Shallow Crust": 300, "default": 200}

	if d, err := cfg.maxDistFor("Active Shallow Crust"); err != nil || d != 300 {
		t.Fatalf("exact match: %v, %v", d, err)
	}
	if d, err := cfg.maxDistFor("Stable Continental"); err != nil || d != 200 {
		t.Fatalf("default fallback: %v, %v", d, err)
	}

	cfg.MaximumDistance = map[string]float64{"Active Shallow Crust": 300}
	if _, err := cfg.maxDistFor("Stable Continental"); err == nil || !strings.Contains(err.Error(), "Stable Continental") {
		t.Fatalf("expected a named error, got %v", err)
	}
}
