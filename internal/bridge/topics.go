package bridge

// Topic names spoken with the device broker.
const (
	TopicDeviceRegister  = "device/register"
	TopicDeviceHeartbeat = "device/heartbeat"
	TopicSessionStart    = "polling/session/start"
	TopicQuestion        = "polling/question"
	TopicQuestionClose   = "polling/question/close"
	TopicQuestionReveal  = "polling/question/reveal"
	TopicAnswer          = "polling/answer"
	TopicAnswerConfirm   = "polling/answer/confirm"
)
