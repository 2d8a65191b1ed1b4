package msg

// Parameter names used by the built-in message types.
const (
	ParamDeltaSimTime        = "DeltaSimTime"
	ParamDeltaRealTime       = "DeltaRealTime"
	ParamSimTimeScale        = "SimTimeScale"
	ParamSimulationTime      = "SimulationTime"
	ParamSimulationClockTime = "SimulationClockTime"
	ParamTimeScale           = "TimeScale"
	ParamTimerName           = "TimerName"
	ParamLateTime            = "LateTime"
	ParamCause               = "Cause"
	ParamMapName             = "MapName"
	ParamEventName           = "EventName"
)

// User-defined types (scripts, data files) take ids from here up.
const FirstUserTypeID uint16 = 1000

var tickParams = []ParamSpec{
	{ParamDeltaSimTime, TypeFloat},
	{ParamDeltaRealTime, TypeFloat},
	{ParamSimTimeScale, TypeFloat},
	{ParamSimulationTime, TypeFloat},
}

var (
	TickLocal      = MustRegisterType("TICK_LOCAL", CategoryTick, 0, tickParams...)
	TickRemote     = MustRegisterType("TICK_REMOTE", CategoryTick, 1, tickParams...)
	TickEndOfFrame = MustRegisterType("TICK_END_OF_FRAME", CategoryTick, 2, tickParams...)

	InfoTimerElapsed = MustRegisterType("INFO_TIMER_ELAPSED", CategoryInfo, 10,
		ParamSpec{ParamTimerName, TypeString},
		ParamSpec{ParamLateTime, TypeFloat},
	)
	InfoActorCreated   = mustRegisterActorUpdate("INFO_ACTOR_CREATED", 11)
	InfoActorPublished = MustRegisterType("INFO_ACTOR_PUBLISHED", CategoryInfo, 12)
	InfoActorDeleted   = MustRegisterType("INFO_ACTOR_DELETED", CategoryInfo, 13)
	InfoActorUpdated   = mustRegisterActorUpdate("INFO_ACTOR_UPDATED", 14)
	InfoPaused         = MustRegisterType("INFO_PAUSED", CategoryInfo, 15)
	InfoResumed        = MustRegisterType("INFO_RESUMED", CategoryInfo, 16)
	InfoRestarted      = MustRegisterType("INFO_RESTARTED", CategoryInfo, 17)
	InfoTimeChanged    = MustRegisterType("INFO_TIME_CHANGED", CategoryInfo, 18,
		ParamSpec{ParamSimulationTime, TypeFloat},
		ParamSpec{ParamTimeScale, TypeFloat},
		ParamSpec{ParamSimulationClockTime, TypeInt},
	)
	InfoMapChangeBegin = MustRegisterType("INFO_MAP_CHANGE_BEGIN", CategoryInfo, 19, ParamSpec{ParamMapName, TypeString})
	InfoMapUnloaded    = MustRegisterType("INFO_MAP_UNLOADED", CategoryInfo, 20, ParamSpec{ParamMapName, TypeString})
	InfoMapLoaded      = MustRegisterType("INFO_MAP_LOADED", CategoryInfo, 21, ParamSpec{ParamMapName, TypeString})
	InfoMapChanged     = MustRegisterType("INFO_MAP_CHANGED", CategoryInfo, 22, ParamSpec{ParamMapName, TypeString})
	InfoGameEvent      = MustRegisterType("INFO_GAME_EVENT", CategoryInfo, 23, ParamSpec{ParamEventName, TypeString})

	CommandPause  = MustRegisterType("COMMAND_PAUSE", CategoryCommand, 40)
	CommandResume = MustRegisterType("COMMAND_RESUME", CategoryCommand, 41)

	RequestPause = MustRegisterType("REQUEST_PAUSE", CategoryRequest, 60)

	ServerRequestRejected = MustRegisterType("SERVER_REQUEST_REJECTED", CategoryServer, 100,
		ParamSpec{ParamCause, TypeString},
	)
)

// Tick is the payload of the tick message types.
type Tick struct {
	DeltaSimTime   float64
	DeltaRealTime  float64
	SimTimeScale   float64
	SimulationTime float64
}

// TickOf reads the tick payload. Missing fields read as zero.
func TickOf(m *Message) Tick {
	return Tick{
		DeltaSimTime:   m.Float(ParamDeltaSimTime),
		DeltaRealTime:  m.Float(ParamDeltaRealTime),
		SimTimeScale:   m.Float(ParamSimTimeScale),
		SimulationTime: m.Float(ParamSimulationTime),
	}
}

// SetTick writes the tick payload into a tick message.
func SetTick(m *Message, t Tick) {
	m.SetParam(ParamDeltaSimTime, t.DeltaSimTime)
	m.SetParam(ParamDeltaRealTime, t.DeltaRealTime)
	m.SetParam(ParamSimTimeScale, t.SimTimeScale)
	m.SetParam(ParamSimulationTime, t.SimulationTime)
}
