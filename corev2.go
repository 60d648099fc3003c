// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// exchange writes packet to the agent and reads datagrams until accept
// takes one. Caller holds cmux.
//
// Attempt N waits N*Timeout for an answer. The request is sent again only
// after a read timeout; a duplicate or a late answer to an earlier request
// (wrongIDError) just makes the loop read again under the same deadline.
// The context is consulted before every write, a request already on the
// wire is left to finish or time out.
func (s *agentSession) exchange(ctx context.Context, packet []byte, expectResponse bool, accept func([]byte) error) error {
	attempts := s.ep.Retries + 1
	p := make([]byte, SNMP_BUFFERSIZE)

	var lastErr error
	sendRequest := true
	for itertry := 0; itertry < attempts; itertry++ {
		//Нужно послать запрос
		if sendRequest {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.ep.Timeout)); err != nil {
				lastErr = err
				continue
			}
			writedn, err := s.conn.Write(packet)
			if err != nil {
				lastErr = err
				continue
			}
			if writedn != len(packet) {
				lastErr = io.ErrShortWrite
				continue
			}
			sendRequest = false
			if !expectResponse {
				return nil
			}
		}

		//Установим таймаут на чтение
		if err := s.conn.SetReadDeadline(time.Now().Add(s.ep.Timeout * time.Duration(itertry+1))); err != nil {
			lastErr = err
			continue
		}
		for {
			rlen, err := s.conn.Read(p)
			if err != nil {
				var nerror net.Error
				if errors.As(err, &nerror) && nerror.Timeout() {
					//Истек таймаут, установим флаг повторной посылки
					sendRequest = true
				}
				lastErr = err
				break
			}
			err = accept(p[:rlen])
			var wrongID wrongIDError
			if errors.As(err, &wrongID) {
				//Дубликат или ответ на другой запрос, ждем следующего пакета
				s.log.Debug("discarding datagram", zap.Error(err))
				continue
			}
			if err != nil {
				return &TransportError{Endpoint: s.ep.String(), Attempts: itertry + 1, Err: fmt.Errorf("malformed response: %w", err)}
			}
			return nil
		}
	}
	return &TransportError{Endpoint: s.ep.String(), Attempts: attempts, Err: lastErr}
}

// requestV2 runs one SNMPv2c request. Caller holds cmux.
func (s *agentSession) requestV2(ctx context.Context, pdu *PDU, expectResponse bool) (*Response, error) {
	vbs, err := wireVarBinds(pdu)
	if err != nil {
		return nil, err
	}
	reqid := atomic.AddInt32(&s.params.MessageIDv2, 1)
	nonRepeaters, maxRepetitions := bulkFields(pdu)

	packet, err := EncodeV2Message(s.ep.Community, int(pdu.Kind), SNMP_Packet_V2_PDU{
		RequestID:      reqid,
		ErrorStatusRaw: nonRepeaters,
		ErrorIndexRaw:  maxRepetitions,
		VarBinds:       vbs,
	})
	if err != nil {
		return nil, err
	}

	var resp *Response
	err = s.exchange(ctx, packet, expectResponse, func(b []byte) error {
		r, perr := receiverV2parser(s.log, b, reqid)
		if perr == nil {
			resp = r
		}
		return perr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
