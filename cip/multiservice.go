package cip

import (
	"encoding/binary"
	"fmt"
)

// SvcMultipleServicePacket (0x0A) batches several CIP requests bound for the
// same Message Router instance into a single request/response round trip —
// the mechanism a batch tag read/write uses to avoid one network trip per tag.
const SvcMultipleServicePacket byte = 0x0A

// MultiServiceRequest is one request bundled inside a Multiple Service Packet.
type MultiServiceRequest struct {
	Service byte
	Path    EPath_t
	Data    []byte
}

// BuildMultipleServiceRequest packs requests into a Multiple Service Packet
// body: a service count, an offset table (one uint16 per request, relative
// to the start of this body), then each request's [Service][PathWordLen]
// [Path][Data] back to back.
func BuildMultipleServiceRequest(requests []MultiServiceRequest) ([]byte, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("MultipleService: no requests provided")
	}
	if len(requests) > 200 {
		return nil, fmt.Errorf("MultipleService: too many requests (%d), max 200", len(requests))
	}

	serviceData := make([][]byte, len(requests))
	for i, req := range requests {
		svcBytes := make([]byte, 0, 2+len(req.Path)+len(req.Data))
		svcBytes = append(svcBytes, req.Service)
		svcBytes = append(svcBytes, req.Path.WordLen())
		svcBytes = append(svcBytes, req.Path...)
		svcBytes = append(svcBytes, req.Data...)
		serviceData[i] = svcBytes
	}

	headerSize := 2 + len(requests)*2
	offsets := make([]uint16, len(requests))
	currentOffset := uint16(headerSize)
	for i, svc := range serviceData {
		offsets[i] = currentOffset
		currentOffset += uint16(len(svc))
	}

	result := make([]byte, 0, int(currentOffset))
	result = binary.LittleEndian.AppendUint16(result, uint16(len(requests)))
	for _, offset := range offsets {
		result = binary.LittleEndian.AppendUint16(result, offset)
	}
	for _, svc := range serviceData {
		result = append(result, svc...)
	}

	return result, nil
}

// MultiServiceResponse is one reply extracted from a Multiple Service Packet
// response, in request order.
type MultiServiceResponse struct {
	Service   byte   // Reply service code (original | 0x80)
	Status    byte   // General status
	ExtStatus []byte // Extended status words, if any
	Data      []byte // Reply-specific data
}

// ParseMultipleServiceResponse parses a Multiple Service Packet reply body
// (the bytes after the Message Router's own reply header) into one
// MultiServiceResponse per bundled request, using the response's own offset
// table to slice each reply out regardless of its size.
func ParseMultipleServiceResponse(data []byte) ([]MultiServiceResponse, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("MultipleService response too short: %d bytes", len(data))
	}

	serviceCount := binary.LittleEndian.Uint16(data[0:2])
	if serviceCount == 0 {
		return nil, nil
	}

	minSize := 2 + int(serviceCount)*2
	if len(data) < minSize {
		return nil, fmt.Errorf("MultipleService response too short for %d services", serviceCount)
	}

	offsets := make([]uint16, serviceCount)
	for i := 0; i < int(serviceCount); i++ {
		offsets[i] = binary.LittleEndian.Uint16(data[2+i*2 : 4+i*2])
	}

	responses := make([]MultiServiceResponse, serviceCount)
	for i := 0; i < int(serviceCount); i++ {
		start := int(offsets[i])

		var end int
		if i < int(serviceCount)-1 {
			end = int(offsets[i+1])
		} else {
			end = len(data)
		}

		if start >= len(data) || start >= end {
			continue
		}

		svcData := data[start:end]
		if len(svcData) < 4 {
			continue
		}

		resp := MultiServiceResponse{
			Service: svcData[0],
			// svcData[1] is reserved
			Status: svcData[2],
		}

		extStatusSize := int(svcData[3]) * 2 // size in words
		dataStart := 4 + extStatusSize

		if extStatusSize > 0 && len(svcData) >= dataStart {
			resp.ExtStatus = svcData[4:dataStart]
		}
		if dataStart < len(svcData) {
			resp.Data = svcData[dataStart:]
		}

		responses[i] = resp
	}

	return responses, nil
}
