package wire

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forPelevin/cuesync/internal/types"
)

// DecodeViewReply decodes the per-video cue metadata. Both the old and the
// new field layouts are accepted; length-delimited fields whose number is
// shared between layouts are classified by their content.
func DecodeViewReply(b []byte) (types.ViewReply, error) {
	reply := types.ViewReply{CheckBox: true}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return reply, parseError("view tag", n)
		}
		b = b[n:]

		if typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return reply, parseError(fmt.Sprintf("view field %d", num), m)
			}
			b = b[m:]
			viewBytesField(&reply, num, v)
			continue
		}
		if typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return reply, parseError(fmt.Sprintf("view field %d", num), m)
			}
			b = b[m:]
			switch num {
			case 1:
				reply.State = int32(v)
			case 6:
				reply.CheckBox = v != 0
			case 7, 8:
				reply.Count = int64(v)
			}
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return reply, parseError(fmt.Sprintf("view field %d", num), m)
		}
		b = b[m:]
	}
	return reply, nil
}

func viewBytesField(reply *types.ViewReply, num protowire.Number, v []byte) {
	switch num {
	case 2:
		reply.TextSide = string(v)
	case 3, 4:
		if seg, err := decodeSegConfig(v); err == nil && likelySegConfig(seg) {
			reply.SegmentConfig = &seg
			return
		}
		if flag, err := decodeFlagConfig(v); err == nil && likelyFlagConfig(flag) {
			reply.Flag = &flag
		}
	case 5:
		if flag, err := decodeFlagConfig(v); err == nil && likelyFlagConfig(flag) {
			reply.Flag = &flag
			return
		}
		if url, ok := specialURL(v); ok {
			reply.SpecialURLs = append(reply.SpecialURLs, url)
		}
	case 7, 8, 9, 10:
		if cmd, err := decodeCommand(v); err == nil && (cmd.Command != "" || cmd.Content != "") {
			reply.Commands = append(reply.Commands, cmd)
		}
	}
}

func likelySegConfig(c types.SegmentConfig) bool {
	return c.PageSize >= 1000 && c.Total >= 1 && c.Total <= 10000
}

func likelyFlagConfig(c types.FlagConfig) bool {
	return c.RecFlag != 0 || c.RecSwitch != 0 || c.RecText != ""
}

func specialURL(v []byte) (string, bool) {
	s := strings.TrimSpace(string(v))
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//") {
		return s, true
	}
	return "", false
}

func decodeSegConfig(b []byte) (types.SegmentConfig, error) {
	var c types.SegmentConfig
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) {
		if typ != protowire.VarintType {
			return
		}
		switch num {
		case 1:
			c.PageSize = int64(v)
		case 2:
			c.Total = int64(v)
		}
	})
	return c, err
}

func decodeFlagConfig(b []byte) (types.FlagConfig, error) {
	var c types.FlagConfig
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			c.RecFlag = int32(v)
		case num == 2 && typ == protowire.BytesType:
			c.RecText = string(raw)
		case num == 3 && typ == protowire.VarintType:
			c.RecSwitch = int32(v)
		}
	})
	return c, err
}

func decodeCommand(b []byte) (types.CommandCue, error) {
	if len(b) == 0 {
		return types.CommandCue{}, errors.New("empty command")
	}
	var c types.CommandCue
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) {
		if typ == protowire.VarintType {
			switch num {
			case 1:
				c.ID = int64(v)
			case 2:
				c.OID = int64(v)
			case 6:
				c.ProgressMs = int32(v)
			}
			return
		}
		if typ != protowire.BytesType {
			return
		}
		switch num {
		case 3:
			c.MidHash = string(raw)
		case 4:
			c.Command = string(raw)
		case 5:
			c.Content = string(raw)
		case 7:
			c.CTime = string(raw)
		case 8:
			c.MTime = string(raw)
		case 9:
			c.Extra = string(raw)
		case 10:
			c.IDStr = string(raw)
		}
	})
	return c, err
}

// eachField walks a flat message and reports varint and length-delimited
// values; other wire types are skipped.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, raw []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return parseError("tag", n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return parseError(fmt.Sprintf("field %d", num), m)
			}
			b = b[m:]
			fn(num, typ, v, nil)
		case protowire.BytesType:
			raw, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return parseError(fmt.Sprintf("field %d", num), m)
			}
			b = b[m:]
			fn(num, typ, 0, raw)
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return parseError(fmt.Sprintf("skip field %d", num), m)
			}
			b = b[m:]
		}
	}
	return nil
}
