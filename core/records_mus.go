package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Binary serializers for stored records. Times are encoded as Unix
// microseconds and decoded in UTC.

var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var timeMicroMUS = timeMicro{}

type timeMicro struct{}

func (s timeMicro) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMicro) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	tmp, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(tmp).UTC()
	return
}

func (s timeMicro) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

func (s timeMicro) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

var SearchResultMUS = searchResultMUS{}

type searchResultMUS struct{}

func (s searchResultMUS) Marshal(v SearchResult, bs []byte) (n int) {
	n = varint.Int64.Marshal(int64(v.Kind), bs)
	n += ord.String.Marshal(v.Phrase, bs[n:])
	n += varint.Int64.Marshal(int64(v.Address), bs[n:])
	n += varint.Int64.Marshal(int64(v.Offset), bs[n:])
	n += ord.String.Marshal(v.MatchedText, bs[n:])
	n += varint.Int64.Marshal(int64(v.Score), bs[n:])
	n += ord.String.Marshal(v.Digest, bs[n:])
	return n + timeMicroMUS.Marshal(v.Timestamp, bs[n:])
}

func (s searchResultMUS) Unmarshal(bs []byte) (v SearchResult, n int, err error) {
	var (
		n1  int
		tmp int64
	)
	tmp, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Kind = MatchKind(tmp)
	v.Phrase, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	tmp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Address = Address(tmp)
	tmp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Offset = int(tmp)
	v.MatchedText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	tmp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Score = int(tmp)
	v.Digest, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s searchResultMUS) Size(v SearchResult) (size int) {
	size = varint.Int64.Size(int64(v.Kind))
	size += ord.String.Size(v.Phrase)
	size += varint.Int64.Size(int64(v.Address))
	size += varint.Int64.Size(int64(v.Offset))
	size += ord.String.Size(v.MatchedText)
	size += varint.Int64.Size(int64(v.Score))
	size += ord.String.Size(v.Digest)
	return size + timeMicroMUS.Size(v.Timestamp)
}

var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int64.Marshal(int64(v.LastAddress), bs[n:])
	return n + timeMicroMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	var (
		n1  int
		tmp int64
	)
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	tmp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastAddress = Address(tmp)
	v.UpdatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int64.Size(int64(v.LastAddress))
	return size + timeMicroMUS.Size(v.UpdatedAt)
}
