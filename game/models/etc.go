package models

import (
	"time"

	"github.com/xiaonanln/saganet/engine/storage"
	"github.com/xiaonanln/saganet/engine/uuid"
)

// AccessKeyLength is the number of characters of an access key
const AccessKeyLength = 10

// AccessKey grants the registration of one player account while access keys are enabled
type AccessKey struct {
	storage.Model

	IsActivated     bool
	GenerationDate  time.Time
	ActivationDate  *time.Time
	AssociatedEmail string
}

func (*AccessKey) BaseTableName() string {
	return "AccessKeys"
}

// GenerateAccessKey returns a random key not in existing
func GenerateAccessKey(existing map[string]bool) string {
	for {
		key := uuid.GenKey(AccessKeyLength, uuid.KeyAlphabet)
		if !existing[key] {
			return key
		}
	}
}

// NewAccessKey creates an unactivated key generated at now
func NewAccessKey(key string, associatedEmail string, now time.Time) *AccessKey {
	ak := &AccessKey{
		GenerationDate:  now.UTC(),
		AssociatedEmail: associatedEmail,
	}
	ak.Id = key
	return ak
}

// Activate marks the key used at now
func (ak *AccessKey) Activate(now time.Time) {
	now = now.UTC()
	ak.IsActivated = true
	ak.ActivationDate = &now
}

// GlobalConfiguration holds the service switches of a deployment tier. There is one per tier.
type GlobalConfiguration struct {
	storage.Model

	IsServiceOnline            bool
	IsUtilityOperationsAllowed bool
	// IsAuthEnabled is informational; the authorization switch is read from the process config
	IsAuthEnabled       bool
	IsAccessKeysEnabled bool
	BuildVersion        string
}

func (*GlobalConfiguration) BaseTableName() string {
	return "GlobalConfiguration"
}

func (gc *GlobalConfiguration) SetDefaults() {
	gc.IsServiceOnline = true
	gc.IsUtilityOperationsAllowed = false
	gc.IsAuthEnabled = true
	gc.IsAccessKeysEnabled = false
	gc.BuildVersion = "0.0.0"
}

// JsonBlob registers a JSON document kept in the blob store
type JsonBlob struct {
	storage.Model
}

func (*JsonBlob) BaseTableName() string {
	return "JsonBlobs"
}

// BlobPath is the path of the document relative to the blob container
func (b *JsonBlob) BlobPath() string {
	return JsonBlobPath(b.Id)
}

// JsonBlobPath returns the blob path of the JsonBlob with the id
func JsonBlobPath(id string) string {
	return "json/" + id + ".json"
}
