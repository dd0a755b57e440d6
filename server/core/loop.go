package core

import (
	"time"

	"github.com/leap-fish/necs/esync/srvsync"
)

type GameLoop struct {
	server   *Server
	tickRate int
	running  bool
	stopChan chan struct{}
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	g.running = true
	dt := time.Second / time.Duration(g.tickRate)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	g.server.log.Info().Int("tickRate", g.tickRate).Msg("game loop started")

	for {
		select {
		case <-g.stopChan:
			g.running = false
			g.server.log.Info().Msg("game loop stopped")
			return
		case <-ticker.C:
			g.tick(dt)
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

func (g *GameLoop) tick(dt time.Duration) {
	g.server.step(dt)

	if err := srvsync.DoSync(); err != nil {
		g.server.log.Warn().Err(err).Msg("sync error")
	}
}
