package project

import (
	"context"
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/hal"
)

const (
	snapshotSelectorsKey = "studyCoursesModuleSelectors"
	snapshotTagsKey      = "tags"
)

// DraftSnapshot is the recoverable state of a project editor form.
type DraftSnapshot struct {
	Values       FormValues
	ModuleGroups []ModuleGroup
	Tags         []Tag
}

// draftDocument is the persisted layout of a DraftSnapshot.
type draftDocument struct {
	FormValues
	ModuleGroups []ModuleGroup `json:"studyCoursesModuleSelectors"`
	Tags         []Tag         `json:"tags"`
}

// Canonical returns a copy of ds in the form a stored snapshot loads back as:
// nil lists are empty and empty link sets are nil. Saving then loading a canonical snapshot yields it unchanged.
func (ds DraftSnapshot) Canonical() DraftSnapshot {
	out := DraftSnapshot{
		Values:       ds.Values,
		ModuleGroups: make([]ModuleGroup, len(ds.ModuleGroups)),
		Tags:         make([]Tag, len(ds.Tags)),
	}
	for i, grp := range ds.ModuleGroups {
		modules := make([]Module, len(grp.SelectedModules))
		for j, mod := range grp.SelectedModules {
			mod.Links = canonicalLinks(mod.Links)
			modules[j] = mod
		}
		grp.StudyCourse.Links = canonicalLinks(grp.StudyCourse.Links)
		out.ModuleGroups[i] = ModuleGroup{StudyCourse: grp.StudyCourse, SelectedModules: modules}
	}
	for i, tag := range ds.Tags {
		tag.Links = canonicalLinks(tag.Links)
		out.Tags[i] = tag
	}
	return out
}

func canonicalLinks(links hal.Links) hal.Links {
	if len(links) == 0 {
		return nil
	}
	return links
}

func (ds DraftSnapshot) MarshalJSON() ([]byte, error) {
	ds = ds.Canonical()
	return json.Marshal(draftDocument{FormValues: ds.Values, ModuleGroups: ds.ModuleGroups, Tags: ds.Tags})
}

func (ds *DraftSnapshot) UnmarshalJSON(data []byte) error {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	*ds = snap
	return nil
}

// DraftKey scopes the draft `key` to one user.
func DraftKey(key, userID string) string {
	return key + ":" + userID
}

// DraftStore keeps a single DraftSnapshot under a fixed key.
type DraftStore struct {
	kv     core.KVStore
	key    string
	logger core.Logger
}

func NewDraftStore(kv core.KVStore, key string, logger core.Logger) *DraftStore {
	return &DraftStore{kv: kv, key: key, logger: logger}
}

func (store *DraftStore) Key() string {
	return store.key
}

// Save overwrites the stored snapshot.
func (store *DraftStore) Save(ctx context.Context, snap DraftSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	if err = store.kv.Set(ctx, store.key, string(data)); err != nil {
		return errors.Wrap(err, "storing draft")
	}
	return nil
}

// Load returns the stored snapshot. Unreadable or corrupt snapshots count as absent.
func (store *DraftStore) Load(ctx context.Context) (DraftSnapshot, bool) {
	data, found, err := store.kv.Get(ctx, store.key)
	if err != nil {
		store.logger.Warn("reading draft", errors.Wrap(err, store.key))
		return DraftSnapshot{}, false
	}
	if !found || data == "" {
		return DraftSnapshot{}, false
	}

	snap, err := decodeSnapshot([]byte(data))
	if err != nil {
		store.logger.Warn("discarding corrupt draft", errors.Wrap(err, store.key))
		return DraftSnapshot{}, false
	}
	return snap, true
}

func (store *DraftStore) Clear(ctx context.Context) error {
	return errors.Wrap(store.kv.Remove(ctx, store.key), "removing draft")
}

// decodeSnapshot rebuilds a DraftSnapshot: module groups and tags are decoded as typed records
// (null groups are skipped), every other field is applied onto FormValues.
func decodeSnapshot(data []byte) (DraftSnapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return DraftSnapshot{}, errors.Wrap(err, "parsing draft")
	}
	if doc == nil {
		return DraftSnapshot{}, errors.New("empty draft")
	}

	snap := DraftSnapshot{ModuleGroups: []ModuleGroup{}, Tags: []Tag{}}

	if raw, ok := doc[snapshotSelectorsKey]; ok {
		var groups []*ModuleGroup
		if err := json.Unmarshal(raw, &groups); err != nil {
			return DraftSnapshot{}, errors.Wrap(err, "parsing "+snapshotSelectorsKey)
		}
		for _, grp := range groups {
			if grp != nil {
				snap.ModuleGroups = append(snap.ModuleGroups, *grp)
			}
		}
		delete(doc, snapshotSelectorsKey)
	}

	if raw, ok := doc[snapshotTagsKey]; ok {
		var tags []Tag
		if err := json.Unmarshal(raw, &tags); err != nil {
			return DraftSnapshot{}, errors.Wrap(err, "parsing "+snapshotTagsKey)
		}
		snap.Tags = tags
		delete(doc, snapshotTagsKey)
	}

	fields := make(map[string]interface{}, len(doc))
	for name, raw := range doc {
		var val interface{}
		if err := json.Unmarshal(raw, &val); err != nil {
			return DraftSnapshot{}, errors.Wrap(err, "parsing "+name)
		}
		if val != nil {
			fields[name] = val
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &snap.Values,
	})
	if err != nil {
		return DraftSnapshot{}, err
	}
	if err = decoder.Decode(fields); err != nil {
		return DraftSnapshot{}, errors.Wrap(err, "applying form values")
	}
	return snap.Canonical(), nil
}
