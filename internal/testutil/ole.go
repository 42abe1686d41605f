package testutil

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

const (
	sectorSize  = 512
	miniCutoff  = 4096
	freeSect    = 0xFFFFFFFF
	endOfChain  = 0xFFFFFFFE
	fatSect     = 0xFFFFFFFD
	noStream    = 0xFFFFFFFF
	typeStorage = 1
	typeStream  = 2
	typeRoot    = 5
)

// BuildHWP writes a legacy HWP compound file (CFB v3) holding a FileHeader
// stream and one BodyText/SectionN stream per entry of sections. Streams are
// padded to the mini-stream cutoff so everything lives in regular sectors.
func BuildHWP(compressed bool, sections ...[]byte) []byte {
	header := make([]byte, 256)
	copy(header, "HWP Document File")
	header[32] = 0x00 // version 5.0.3.0, little endian
	header[33] = 0x03
	header[34] = 0x00
	header[35] = 0x05
	if compressed {
		header[36] = 0x01
	}

	type entry struct {
		name      string
		typ       byte
		data      []byte
		left      uint32
		right     uint32
		child     uint32
		startSect uint32
	}

	// 0 root, 1 BodyText, 2 FileHeader, 3.. sections
	entries := []entry{
		{name: "Root Entry", typ: typeRoot, left: noStream, right: noStream, child: 1},
		{name: "BodyText", typ: typeStorage, left: noStream, right: 2, child: noStream},
		{name: "FileHeader", typ: typeStream, data: pad(header), left: noStream, right: noStream, child: noStream},
	}
	for i, s := range sections {
		e := entry{name: "Section" + itoa(i), typ: typeStream, data: pad(s), left: noStream, right: noStream, child: noStream}
		if i+1 < len(sections) {
			e.right = uint32(4 + i)
		}
		entries = append(entries, e)
	}
	if len(sections) > 0 {
		entries[1].child = 3
	}

	dirSectors := (len(entries)*128 + sectorSize - 1) / sectorSize
	// sector 0 is the FAT, then the directory, then stream data
	next := uint32(1 + dirSectors)
	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSect
	}
	fat[0] = fatSect
	for i := 0; i < dirSectors; i++ {
		fat[1+i] = uint32(2 + i)
	}
	fat[dirSectors] = endOfChain

	var data bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if e.typ != typeStream {
			e.startSect = endOfChain
			continue
		}
		e.startSect = next
		n := uint32(len(e.data) / sectorSize)
		for j := uint32(0); j < n; j++ {
			if j == n-1 {
				fat[next+j] = endOfChain
			} else {
				fat[next+j] = next + j + 1
			}
		}
		next += n
		data.Write(e.data)
	}

	var out bytes.Buffer
	le := binary.LittleEndian

	hdr := make([]byte, sectorSize)
	copy(hdr, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le.PutUint16(hdr[24:], 0x003E)
	le.PutUint16(hdr[26:], 0x0003)
	le.PutUint16(hdr[28:], 0xFFFE)
	le.PutUint16(hdr[30:], 9)
	le.PutUint16(hdr[32:], 6)
	le.PutUint32(hdr[44:], 1) // FAT sectors
	le.PutUint32(hdr[48:], 1) // first directory sector
	le.PutUint32(hdr[56:], miniCutoff)
	le.PutUint32(hdr[60:], endOfChain)
	le.PutUint32(hdr[68:], endOfChain)
	le.PutUint32(hdr[76:], 0) // DIFAT[0] -> FAT in sector 0
	for i := 1; i < 109; i++ {
		le.PutUint32(hdr[76+4*i:], freeSect)
	}
	out.Write(hdr)

	fatBytes := make([]byte, sectorSize)
	for i, v := range fat {
		le.PutUint32(fatBytes[4*i:], v)
	}
	out.Write(fatBytes)

	dir := make([]byte, dirSectors*sectorSize)
	for i := len(entries); i < dirSectors*4; i++ {
		off := i * 128
		le.PutUint32(dir[off+68:], noStream)
		le.PutUint32(dir[off+72:], noStream)
		le.PutUint32(dir[off+76:], noStream)
	}
	for i, e := range entries {
		off := i * 128
		name := utf16.Encode([]rune(e.name))
		for j, u := range name {
			le.PutUint16(dir[off+2*j:], u)
		}
		le.PutUint16(dir[off+64:], uint16(2*(len(name)+1)))
		dir[off+66] = e.typ
		dir[off+67] = 1 // black
		le.PutUint32(dir[off+68:], e.left)
		le.PutUint32(dir[off+72:], e.right)
		le.PutUint32(dir[off+76:], e.child)
		le.PutUint32(dir[off+116:], e.startSect)
		le.PutUint64(dir[off+120:], uint64(len(e.data)))
	}
	out.Write(dir)
	out.Write(data.Bytes())
	return out.Bytes()
}

// pad zero-fills b up to at least the mini-stream cutoff and a whole sector.
// Zero code units are dropped by the HWP text decoder and ignored after a
// final deflate block.
func pad(b []byte) []byte {
	n := max(len(b), miniCutoff)
	if r := n % sectorSize; r != 0 {
		n += sectorSize - r
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}
