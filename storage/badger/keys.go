package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/babel/core"
)

// Key prefixes for different data types
const (
	resultPrefix      = "res:"
	resultKeyPrefix   = "resk:"
	resultIDSeq       = "resseq"
	phrasePrefix      = "phr:"
	phraseIndexPrefix = "phri:"
	phraseIDSeq       = "phrseq"
	checkpointPrefix  = "chkpt:"
)

// makeSeqKey appends a BigEndian sequence number to prefix so that keys
// iterate in insertion order.
func makeSeqKey(prefix string, seq uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeResultKey generates the primary key of a result.
func makeResultKey(seq uint64) []byte {
	return makeSeqKey(resultPrefix, seq)
}

// makeResultIndexKey generates the dedup index key of a result.
// Format: prefix:address:phrase
func makeResultIndexKey(key core.ResultKey) []byte {
	buf := make([]byte, len(resultKeyPrefix)+8+len(key.Phrase))
	offset := copy(buf, resultKeyPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(key.Address))
	offset += 8
	copy(buf[offset:], key.Phrase)
	return buf
}

// makePhraseKey generates the primary key of a phrase.
func makePhraseKey(seq uint64) []byte {
	return makeSeqKey(phrasePrefix, seq)
}

// makePhraseIndexKey generates the content index key of a phrase.
func makePhraseIndexKey(id core.ID) []byte {
	return makeSeqKey(phraseIndexPrefix, uint64(id))
}

// makeCheckpointKey generates a key for scan checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s%s", checkpointPrefix, name))
}
