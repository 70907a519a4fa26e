package response

type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// New 保证 data 不为 null
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data interface{}) Resp {
	return New(CodeOK, Msg(CodeOK), data)
}

// Error 失败响应，customMsg 为空时用默认文案
func Error(code int, customMsg string) Resp {
	return Fail(code, customMsg, nil)
}

// Fail 失败响应并携带数据（如字段校验明细）
func Fail(code int, customMsg string, data interface{}) Resp {
	msg := Msg(code)
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, data)
}
