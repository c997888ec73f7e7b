// Package metadata reads and writes the METADATA provenance file kept next to
// every managed crate. The file is a text-format protobuf; messages are built
// dynamically from a descriptor declared in this package.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// FileName is the provenance file name inside a crate directory.
const FileName = "METADATA"

const (
	identifierCratesIO = "crates.io"
	identifierArchive  = "Archive"
)

// ErrNameMismatch is returned when METADATA describes a different crate.
var ErrNameMismatch = errors.New("METADATA name does not match crate")

var nowFunc = time.Now

// Identifier is a provenance identifier entry.
type Identifier struct {
	Type          string
	Value         string
	Version       string
	PrimarySource bool
}

// URL is a legacy url entry.
type URL struct {
	Type  string
	Value string
}

// Metadata is a loaded or freshly initialized METADATA file.
type Metadata struct {
	path string
	msg  *dynamicpb.Message
}

func newMessage() (*dynamicpb.Message, error) {
	fd, err := schema()
	if err != nil {
		return nil, err
	}
	return dynamicpb.NewMessage(fd.Messages().ByName("MetaData")), nil
}

// Init creates provenance for a crate at path. Nothing is written until Write.
func Init(path, name, version, description, licenseType string) (*Metadata, error) {
	msg, err := newMessage()
	if err != nil {
		return nil, err
	}
	m := &Metadata{path: path, msg: msg}
	setString(msg, "name", name)
	if description != "" {
		setString(msg, "description", description)
	}
	if err := m.setLicenseType(licenseType); err != nil {
		return nil, err
	}
	if err := m.SetVersionAndURLs(name, version); err != nil {
		return nil, err
	}
	return m, nil
}

// Load parses the METADATA file at path. Unknown fields are dropped.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	msg, err := newMessage()
	if err != nil {
		return nil, err
	}
	if err := (prototext.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Metadata{path: path, msg: msg}, nil
}

// Write serializes the metadata back to its path.
func (m *Metadata) Write() error {
	data, err := prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m.msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.path, err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	return nil
}

func (m *Metadata) Path() string { return m.path }

func (m *Metadata) Name() string        { return getString(m.msg, "name") }
func (m *Metadata) Description() string { return getString(m.msg, "description") }
func (m *Metadata) Version() string     { return getString(m.thirdParty(), "version") }
func (m *Metadata) Homepage() string    { return getString(m.thirdParty(), "homepage") }

// LicenseType returns the license_type enum name, or "" when unset.
func (m *Metadata) LicenseType() string {
	tp := m.thirdParty()
	fd := field(tp, "license_type")
	if !tp.Has(fd) {
		return ""
	}
	return enumName(fd, tp.Get(fd).Enum())
}

// LastUpgradeDate returns the recorded upgrade date, zero when unset.
func (m *Metadata) LastUpgradeDate() time.Time {
	tp := m.thirdParty()
	fd := field(tp, "last_upgrade_date")
	if !tp.Has(fd) {
		return time.Time{}
	}
	d := tp.Get(fd).Message()
	return time.Date(int(getInt32(d, "year")), time.Month(getInt32(d, "month")), int(getInt32(d, "day")), 0, 0, 0, 0, time.UTC)
}

func (m *Metadata) Identifiers() []Identifier {
	var out []Identifier
	each(m.identifiers(), func(id protoreflect.Message) {
		out = append(out, Identifier{
			Type:          getString(id, "type"),
			Value:         getString(id, "value"),
			Version:       getString(id, "version"),
			PrimarySource: id.Get(field(id, "primary_source")).Bool(),
		})
	})
	return out
}

func (m *Metadata) URLs() []URL {
	var out []URL
	each(m.urls(), func(u protoreflect.Message) {
		fd := field(u, "type")
		out = append(out, URL{Type: enumName(fd, u.Get(fd).Enum()), Value: getString(u, "value")})
	})
	return out
}

// SetVersionAndURLs records version and the crates.io and archive
// identifiers for name, and stamps the upgrade date.
func (m *Metadata) SetVersionAndURLs(name, version string) error {
	if existing := m.Name(); existing != "" && existing != name {
		return fmt.Errorf("%s: %q vs %q: %w", m.path, existing, name, ErrNameMismatch)
	}
	setString(m.msg, "name", name)
	tp := m.thirdParty()
	setString(tp, "version", version)

	home := m.identifier(identifierCratesIO)
	setString(home, "value", "https://crates.io/crates/"+name)

	archive := m.identifier(identifierArchive)
	setString(archive, "value", ArchiveURL(name, version))
	setString(archive, "version", version)
	archive.Set(field(archive, "primary_source"), protoreflect.ValueOfBool(true))

	now := nowFunc()
	date := tp.Mutable(field(tp, "last_upgrade_date")).Message()
	date.Set(field(date, "year"), protoreflect.ValueOfInt32(int32(now.Year())))
	date.Set(field(date, "month"), protoreflect.ValueOfInt32(int32(now.Month())))
	date.Set(field(date, "day"), protoreflect.ValueOfInt32(int32(now.Day())))
	return nil
}

// ArchiveURL is the crates.io download location of a crate version.
func ArchiveURL(name, version string) string {
	return fmt.Sprintf("https://static.crates.io/crates/%s/%s-%s.crate", name, name, version)
}

// MigrateArchive turns legacy ARCHIVE urls into an Archive identifier.
func (m *Metadata) MigrateArchive() {
	var archive string
	m.dropURLs("ARCHIVE", func(value string) {
		if archive == "" {
			archive = value
		}
	})
	if archive == "" || m.findIdentifier(identifierArchive) != nil {
		return
	}
	id := m.identifier(identifierArchive)
	setString(id, "value", archive)
	if v := m.Version(); v != "" {
		setString(id, "version", v)
	}
}

// MigrateHomepage moves a legacy HOMEPAGE url into the homepage field.
func (m *Metadata) MigrateHomepage() {
	var homepage string
	m.dropURLs("HOMEPAGE", func(value string) {
		if homepage == "" {
			homepage = value
		}
	})
	if homepage != "" && m.Homepage() == "" {
		setString(m.thirdParty(), "homepage", homepage)
	}
}

// RemoveDeprecatedURL clears the remaining url entries.
func (m *Metadata) RemoveDeprecatedURL() {
	tp := m.thirdParty()
	tp.Clear(field(tp, "url"))
}

func (m *Metadata) setLicenseType(name string) error {
	tp := m.thirdParty()
	fd := field(tp, "license_type")
	v := fd.Enum().Values().ByName(protoreflect.Name(name))
	if v == nil {
		return fmt.Errorf("unknown license type %q", name)
	}
	tp.Set(fd, protoreflect.ValueOfEnum(v.Number()))
	return nil
}

func (m *Metadata) thirdParty() protoreflect.Message {
	return m.msg.Mutable(field(m.msg, "third_party")).Message()
}

func (m *Metadata) identifiers() protoreflect.List {
	tp := m.thirdParty()
	return tp.Mutable(field(tp, "identifier")).List()
}

func (m *Metadata) urls() protoreflect.List {
	tp := m.thirdParty()
	return tp.Mutable(field(tp, "url")).List()
}

func (m *Metadata) findIdentifier(typ string) protoreflect.Message {
	var found protoreflect.Message
	each(m.identifiers(), func(id protoreflect.Message) {
		if found == nil && getString(id, "type") == typ {
			found = id
		}
	})
	return found
}

// identifier returns the first identifier of typ, appending one if absent.
func (m *Metadata) identifier(typ string) protoreflect.Message {
	if id := m.findIdentifier(typ); id != nil {
		return id
	}
	list := m.identifiers()
	el := list.NewElement()
	setString(el.Message(), "type", typ)
	list.Append(el)
	return el.Message()
}

// dropURLs removes url entries of the given type, reporting each value.
func (m *Metadata) dropURLs(typ string, seen func(value string)) {
	list := m.urls()
	kept := 0
	for i := 0; i < list.Len(); i++ {
		v := list.Get(i)
		u := v.Message()
		fd := field(u, "type")
		if enumName(fd, u.Get(fd).Enum()) == typ {
			seen(getString(u, "value"))
			continue
		}
		list.Set(kept, v)
		kept++
	}
	list.Truncate(kept)
}

func each(list protoreflect.List, fn func(protoreflect.Message)) {
	for i := 0; i < list.Len(); i++ {
		fn(list.Get(i).Message())
	}
}

func field(msg protoreflect.Message, name string) protoreflect.FieldDescriptor {
	return msg.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func getString(msg protoreflect.Message, name string) string {
	return msg.Get(field(msg, name)).String()
}

func getInt32(msg protoreflect.Message, name string) int32 {
	return int32(msg.Get(field(msg, name)).Int())
}

func setString(msg protoreflect.Message, name, value string) {
	msg.Set(field(msg, name), protoreflect.ValueOfString(value))
}

func enumName(fd protoreflect.FieldDescriptor, n protoreflect.EnumNumber) string {
	if v := fd.Enum().Values().ByNumber(n); v != nil {
		return string(v.Name())
	}
	return ""
}
