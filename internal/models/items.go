package models

import (
	"fmt"
	"time"
)

// Identifier is the opaque OpenStack identifier of an item. It is stable and
// unique within the scope of one item type on one tenant.
type Identifier string

// String returns the string representation of Identifier
func (i Identifier) String() string {
	return string(i)
}

// ItemType represents the type of a deletable OpenStack item
type ItemType string

const (
	ItemTypeImage    ItemType = "image"
	ItemTypeKeypair  ItemType = "keypair"
	ItemTypeInstance ItemType = "instance"
)

// String returns the string representation of ItemType
func (it ItemType) String() string {
	return string(it)
}

// Item is a deletable OpenStack resource. Two items are the same item iff
// they have the same type and the same identifier; compare with KeyOf, never
// by pointer.
type Item interface {
	ID() Identifier
	Name() string
	Type() ItemType
}

// Timestamped is implemented by item types for which OpenStack reports a
// creation time. Items without it are aged from when the tracker first saw
// them.
type Timestamped interface {
	Item
	CreatedAt() time.Time
}

// Key is the structural identity of an item, usable as a map key.
type Key struct {
	Type ItemType
	ID   Identifier
}

// KeyOf returns the structural identity of an item
func KeyOf(item Item) Key {
	return Key{Type: item.Type(), ID: item.ID()}
}

// Image is a Glance image
type Image struct {
	Identifier Identifier
	ImageName  string
	Created    time.Time
	Protected  bool
}

func (i Image) ID() Identifier       { return i.Identifier }
func (i Image) Name() string         { return i.ImageName }
func (i Image) Type() ItemType       { return ItemTypeImage }
func (i Image) CreatedAt() time.Time { return i.Created }

// Keypair is a Nova keypair. OpenStack identifies keypairs by name, so the
// identifier and the name coincide.
type Keypair struct {
	Identifier  Identifier
	KeypairName string
}

func (k Keypair) ID() Identifier { return k.Identifier }
func (k Keypair) Name() string   { return k.KeypairName }
func (k Keypair) Type() ItemType { return ItemTypeKeypair }

// Instance is a Nova server
type Instance struct {
	Identifier   Identifier
	InstanceName string
	Created      time.Time
	// ImageID references the image the instance was booted from; empty for
	// volume-booted instances.
	ImageID Identifier
	// KeyName is the name of the keypair injected at boot; empty if none.
	KeyName string
}

func (i Instance) ID() Identifier       { return i.Identifier }
func (i Instance) Name() string         { return i.InstanceName }
func (i Instance) Type() ItemType       { return ItemTypeInstance }
func (i Instance) CreatedAt() time.Time { return i.Created }

// HumanID returns the identifier used for an item in reason strings and
// reports. It is deterministic so report output is diffable between runs.
func HumanID(item Item) string {
	return fmt.Sprintf("%s %q (id: %s)", item.Type(), item.Name(), item.ID())
}
