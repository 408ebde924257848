//go:build !unix

package server

import "github.com/pkg/errors"

func (s *Server) listenReactor() (Runner, error) {
	return nil, errors.New("reactor mode requires poll(2), use proactor mode instead")
}
