package config

import "testing"

func TestFromEnvAppliesDefaultsWithNoEnvSet(t *testing.T) {
	cfg := FromEnv()
	if cfg.QualityThreshold != 0.85 {
		t.Errorf("QualityThreshold = %v, want 0.85", cfg.QualityThreshold)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.MaxWorkers)
	}
	if cfg.Storage.Backend != StorageLocal {
		t.Errorf("Storage.Backend = %v, want local", cfg.Storage.Backend)
	}
	if len(cfg.LangsTesseract) != 1 || cfg.LangsTesseract[0] != "eng" {
		t.Errorf("LangsTesseract = %v", cfg.LangsTesseract)
	}
}

func TestFromEnvOverridesFromEnvironment(t *testing.T) {
	t.Setenv("HYBRIDOCR_QUALITY_THRESHOLD", "0.7")
	t.Setenv("HYBRIDOCR_MAX_WORKERS", "16")
	t.Setenv("HYBRIDOCR_LANGS_TESSERACT", "eng,deu,fra")
	t.Setenv("HYBRIDOCR_STORAGE_BACKEND", "s3")

	cfg := FromEnv()
	if cfg.QualityThreshold != 0.7 {
		t.Errorf("QualityThreshold = %v, want 0.7", cfg.QualityThreshold)
	}
	if cfg.MaxWorkers != 16 {
		t.Errorf("MaxWorkers = %d, want 16", cfg.MaxWorkers)
	}
	if len(cfg.LangsTesseract) != 3 {
		t.Errorf("LangsTesseract = %v, want 3 entries", cfg.LangsTesseract)
	}
	if cfg.Storage.Backend != StorageS3 {
		t.Errorf("Storage.Backend = %v, want s3", cfg.Storage.Backend)
	}
}

func TestParseListHandlesEmptyAndWhitespace(t *testing.T) {
	if got := parseList(""); got != nil {
		t.Errorf("parseList(\"\") = %v, want nil", got)
	}
	if got := parseList(" a , b ,,c "); len(got) != 3 {
		t.Errorf("parseList = %v, want 3 entries", got)
	}
}

func TestParseBoolRecognizesCommonTruthyForms(t *testing.T) {
	for _, v := range []string{"1", "true", "True", "yes", "on"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"0", "false", "", "no"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true, want false", v)
		}
	}
}
