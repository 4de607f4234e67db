package shard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"github.com/Sumatoshi-tech/scipcxx/internal/indexer"
)

// ErrCorruptShard is returned when a shard file's framing or checksum is
// inconsistent with its own declared lengths.
var ErrCorruptShard = errors.New("shard: corrupt shard file")

// Data is one worker's Phase-B output for a single job: the documents it
// is the chosen emitter for, plus whatever symbols those documents
// reference without defining (spec.md §4.7 "External symbols").
type Data struct {
	Documents        []*scip.Document
	ExternalSymbols  []*scip.SymbolInformation
	ForwardDeclInfos []ForwardDeclRecord
}

// ForwardDeclRecord is the wire shape of a ForwardDeclIndex shard entry
// (spec.md §3 "ForwardDecl", §6 "A separate ForwardDeclIndex shard carries
// forward-declaration records for the same TU"). No third-party protobuf
// schema in the retrieval pack covers this auxiliary structure, so it is
// carried as a small JSON payload inside the same LZ4 frame the document
// shard uses, rather than inventing a standalone binary format (see
// DESIGN.md).
type ForwardDeclRecord struct {
	Suffix        string   `json:"suffix"`
	Documentation []string `json:"documentation,omitempty"`
	References    []string `json:"references"`
}

// FromPartialDocuments builds shard Data from a worker's merged per-file
// PartialDocuments: one wire Document per PartialDocument, plus each
// document's forward-declaration records. Documents are not split into
// in-project and external content, and ExternalSymbols is left empty.
func FromPartialDocuments(docs []*indexer.PartialDocument) Data {
	var out Data

	for _, doc := range docs {
		out.Documents = append(out.Documents, ToDocument(doc))

		for _, fwd := range doc.Forwards {
			out.ForwardDeclInfos = append(out.ForwardDeclInfos, ForwardDeclRecord{
				Suffix:        fwd.Suffix,
				Documentation: fwd.Documentation,
				References:    fwd.References,
			})
		}
	}

	return out
}

// Write serializes data as an LZ4-block-compressed protobuf Index message
// (documents + external symbols) to path (SPEC_FULL.md §11: "Shard files written by workers
// are LZ4-framed ... the same way the teacher compresses cached blobs").
// Forward-declaration records are appended as a second, independently
// framed block so a reader that only wants documents need not touch them.
func Write(path string, data Data) error {
	index := &scip.Index{
		Metadata:        &scip.Metadata{ToolInfo: &scip.ToolInfo{Name: "scipcxx"}},
		Documents:       data.Documents,
		ExternalSymbols: data.ExternalSymbols,
	}

	indexBytes, err := proto.Marshal(index)
	if err != nil {
		return fmt.Errorf("shard: marshal index: %w", err)
	}

	fwdBytes, err := marshalForwardDecls(data.ForwardDeclInfos)
	if err != nil {
		return err
	}

	f, err := os.Create(path) //nolint:gosec // path is driver-controlled temp dir, not user input.
	if err != nil {
		return fmt.Errorf("shard: create %s: %w", path, err)
	}
	defer f.Close()

	if writeErr := writeBlock(f, indexBytes); writeErr != nil {
		return fmt.Errorf("shard: write index block of %s: %w", path, writeErr)
	}

	if writeErr := writeBlock(f, fwdBytes); writeErr != nil {
		return fmt.Errorf("shard: write forward-decl block of %s: %w", path, writeErr)
	}

	return nil
}

// Read parses a shard file written by Write.
func Read(path string) (Data, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the driver's own temp-dir bookkeeping.
	if err != nil {
		return Data{}, fmt.Errorf("shard: open %s: %w", path, err)
	}
	defer f.Close()

	indexBytes, err := readBlock(f)
	if err != nil {
		return Data{}, fmt.Errorf("shard: read index block of %s: %w", path, err)
	}

	fwdBytes, err := readBlock(f)
	if err != nil {
		return Data{}, fmt.Errorf("shard: read forward-decl block of %s: %w", path, err)
	}

	var index scip.Index
	if unmarshalErr := proto.Unmarshal(indexBytes, &index); unmarshalErr != nil {
		return Data{}, fmt.Errorf("%w: %s: %w", ErrCorruptShard, path, unmarshalErr)
	}

	forwards, err := unmarshalForwardDecls(fwdBytes)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %s: %w", ErrCorruptShard, path, err)
	}

	return Data{Documents: index.Documents, ExternalSymbols: index.ExternalSymbols, ForwardDeclInfos: forwards}, nil
}

// writeBlock writes a length-prefixed LZ4 block: [u32 compressedLen][u32
// originalLen][compressed bytes].
func writeBlock(f *os.File, raw []byte) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	// Incompressible or tiny payloads: CompressBlock returns n == 0 to mean
	// "store the data uncompressed".
	stored := compressed[:n]
	if n == 0 {
		stored = raw
	}

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(stored))) //nolint:gosec // shard sizes fit u32 in practice.
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(raw)))    //nolint:gosec // see above.

	if _, err := f.Write(header[:]); err != nil {
		return err
	}

	_, err = f.Write(stored)

	return err
}

func readBlock(f *os.File) ([]byte, error) {
	var header [8]byte

	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptShard, err)
	}

	compressedLen := binary.LittleEndian.Uint32(header[0:4])
	originalLen := binary.LittleEndian.Uint32(header[4:8])

	stored := make([]byte, compressedLen)
	if _, err := io.ReadFull(f, stored); err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrCorruptShard, err)
	}

	if compressedLen == originalLen {
		return stored, nil
	}

	out := make([]byte, originalLen)

	if _, err := lz4.UncompressBlock(stored, out); err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %w", ErrCorruptShard, err)
	}

	return out, nil
}
