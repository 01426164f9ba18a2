package app

import (
	"path/filepath"
	"strings"

	"doc-editor/pkg/room"
	"doc-editor/pkg/storage"
)

// RoomSinks returns a factory giving each room its own target of the given kind.
// File-based kinds get the room ID spliced into the file name, a shared postgres
// connection files revisions under the room ID, and a null sink is shared as is.
func RoomSinks(kind string, opts storage.Options, shared storage.Sink) room.SinkFactory {
	return func(roomID string) (storage.Sink, error) {
		switch s := shared.(type) {
		case *storage.PostgresSink:
			return s.WithTitle(roomID), nil
		case *storage.NullSink:
			return s, nil
		}

		o := opts
		o.Title = roomID
		o.Filename = roomFilename(opts.Filename, roomID)
		return storage.Open(kind, o)
	}
}

// roomFilename turns "out/document.txt" into "out/document-<id>.txt"
func roomFilename(name, roomID string) string {
	if name == "" {
		name = storage.DefaultFilename
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + roomID + ext
}
