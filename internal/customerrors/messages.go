package customerrors

// Backend error codes (PostgreSQL SQLSTATE, PostgREST, GoTrue, storage).
const (
	CodeUniqueViolation       = "23505"
	CodeForeignKeyViolation   = "23503"
	CodeCheckViolation        = "23514"
	CodeNotNullViolation      = "23502"
	CodeInsufficientPrivilege = "42501"

	CodeNoRows = "PGRST116"

	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeSignupDisabled     = "signup_disabled"
	CodeWeakPassword       = "weak_password"
	CodeEmailRateLimit     = "over_email_send_rate_limit"
	CodeEmailExists        = "email_exists"
	CodeUserAlreadyExists  = "user_already_exists"

	CodeStorageDuplicate = "Duplicate"
	CodeStorageNotFound  = "storage_not_found"
)

const (
	MsgAuthenticationFailed   = "인증에 실패했습니다."
	MsgEmailNotConfirmed      = "이메일 인증이 필요합니다."
	MsgEmailAlreadyRegistered = "이미 등록된 이메일입니다."
	MsgWeakPassword           = "비밀번호가 너무 약합니다. 6자 이상 입력해주세요."
	MsgSignupDisabled         = "회원가입이 비활성화되어 있습니다."
	MsgEmailRateLimitExceeded = "이메일 전송 한도를 초과했습니다. 잠시 후 다시 시도해주세요."

	MsgResourceNotFound    = "요청한 리소스를 찾을 수 없습니다."
	MsgDuplicateKey        = "중복된 데이터입니다."
	MsgForeignKeyViolation = "참조 무결성 제약 위반입니다."
	MsgCheckViolation      = "데이터 검증 제약 위반입니다."
	MsgNotNullViolation    = "필수 값이 누락되었습니다."

	MsgNetwork      = "네트워크 연결을 확인해주세요."
	MsgServer       = "서버 오류가 발생했습니다."
	MsgValidation   = "입력값을 확인해주세요."
	MsgUnauthorized = "로그인이 필요합니다."
	MsgUnknown      = "알 수 없는 오류가 발생했습니다."

	MsgRLSPolicyViolation  = "데이터 접근 권한이 없습니다."
	MsgStorageFileNotFound = "파일을 찾을 수 없습니다."
	MsgDuplicateEmail      = "이미 사용 중인 이메일입니다."
)
