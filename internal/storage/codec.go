package storage

import (
	"encoding/json"
	"errors"

	"seismos/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSiteCollection(sc model.SiteCollection) ([]byte, error) {
	return json.Marshal(sc)
}

func DecodeSiteCollection(data []byte) (model.SiteCollection, error) {
	var sc model.SiteCollection
	if err := json.Unmarshal(data, &sc); err != nil {
		return model.SiteCollection{}, err
	}
	if err := checkVersion(sc.VersionedRecord); err != nil {
		return model.SiteCollection{}, err
	}
	return sc, nil
}

func EncodeRuptureGroup(g model.RuptureGroup) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeRuptureGroup(data []byte) (model.RuptureGroup, error) {
	var grp model.RuptureGroup
	if err := json.Unmarshal(data, &grp); err != nil {
		return model.RuptureGroup{}, err
	}
	if err := checkVersion(grp.VersionedRecord); err != nil {
		return model.RuptureGroup{}, err
	}
	return grp, nil
}

func EncodeSiteCurves(c model.SiteCurves) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeSiteCurves(data []byte) (model.SiteCurves, error) {
	var curves model.SiteCurves
	if err := json.Unmarshal(data, &curves); err != nil {
		return model.SiteCurves{}, err
	}
	if err := checkVersion(curves.VersionedRecord); err != nil {
		return model.SiteCurves{}, err
	}
	return curves, nil
}

func EncodeBinEdges(rec model.BinEdgesRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeBinEdges(data []byte) (model.BinEdgesRecord, error) {
	var rec model.BinEdgesRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.BinEdgesRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.BinEdgesRecord{}, err
	}
	return rec, nil
}

func EncodeDisaggOutput(out model.DisaggOutput) ([]byte, error) {
	return json.Marshal(out)
}

func DecodeDisaggOutput(data []byte) (model.DisaggOutput, error) {
	var out model.DisaggOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return model.DisaggOutput{}, err
	}
	if err := checkVersion(out.VersionedRecord); err != nil {
		return model.DisaggOutput{}, err
	}
	return out, nil
}

func EncodeRlzs(rlzs []int) ([]byte, error) {
	return json.Marshal(rlzs)
}

func DecodeRlzs(data []byte) ([]int, error) {
	var rlzs []int
	if err := json.Unmarshal(data, &rlzs); err != nil {
		return nil, err
	}
	return rlzs, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
