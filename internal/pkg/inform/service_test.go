package inform

import (
	"fmt"
	"testing"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/callqa/callqa/internal/pkg/persistence"
	"github.com/callqa/callqa/internal/pkg/test"
	"github.com/callqa/callqa/internal/pkg/test/mocks"
	"github.com/callqa/callqa/internal/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vgarvardt/gue/v5"
)

var (
	dbMock     *mocks.DB
	makerMock  *mockEmailMaker
	senderMock *mockEmailSender
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	makerMock = &mockEmailMaker{}
	senderMock = &mockEmailSender{}
	srvData = &ServiceData{GueClient: &gue.Client{}, WorkerCount: 5, DB: dbMock,
		EmailMaker: makerMock, EmailSender: senderMock}
	dbMock.On("LoadCall", mock.Anything, mock.Anything).Return(&persistence.CallRecord{ID: "1",
		Email: utils.ToSQLStr("olia@o.lt")}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("UnLockEmailTable", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	makerMock.On("Make", mock.Anything).Return(&email.Email{}, nil)
	senderMock.On("Send", mock.Anything).Return(nil)
}

func newMsg() *amessages.InformMessage {
	return &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted, At: time.Now()}
}

func Test_handleInform(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.Nil(t, err)
	senderMock.AssertCalled(t, "Send", mock.Anything)
	dbMock.AssertCalled(t, "LockEmailTable", mock.Anything, "1", amessages.InformTypeStarted)
	unlockValue := dbMock.Calls[len(dbMock.Calls)-1].Arguments[3].(*int)
	assert.Equal(t, 2, *unlockValue)
}

func Test_handleInform_SkipsNoEmail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadCall", mock.Anything, mock.Anything).Return(&persistence.CallRecord{ID: "1"}, nil)
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.Nil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_SkipsNoRecord(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadCall", mock.Anything, mock.Anything).Return(nil, nil)
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.Nil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_Fails_Load(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadCall", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
}

func Test_handleInform_Fails_Maker(t *testing.T) {
	initTest(t)
	makerMock.ExpectedCalls = nil
	makerMock.On("Make", mock.Anything).Return(nil, fmt.Errorf("olia err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_Fails_Lock(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadCall", mock.Anything, mock.Anything).Return(&persistence.CallRecord{ID: "1",
		Email: utils.ToSQLStr("olia@o.lt")}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("olia err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
	senderMock.AssertNotCalled(t, "Send", mock.Anything)
}

func Test_handleInform_Fails_Send(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("Send", mock.Anything).Return(fmt.Errorf("olia err"))
	err := handleInform(test.Ctx(t), newMsg(), srvData)
	assert.NotNil(t, err)
	unlockValue := dbMock.Calls[len(dbMock.Calls)-1].Arguments[3].(*int)
	assert.Equal(t, 0, *unlockValue)
}

func Test_toLocalTime(t *testing.T) {
	initTest(t)
	at := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, at, toLocalTime(srvData, at))
	loc, err := time.LoadLocation("Europe/Vilnius")
	assert.Nil(t, err)
	srvData.Location = loc
	assert.Equal(t, at.In(loc), toLocalTime(srvData, at))
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *ServiceData
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1,
			EmailMaker: makerMock, EmailSender: senderMock, DB: dbMock}}, wantErr: false},
		{name: "Fail gue", args: args{data: &ServiceData{WorkerCount: 1,
			EmailMaker: makerMock, EmailSender: senderMock, DB: dbMock}}, wantErr: true},
		{name: "Fail count", args: args{data: &ServiceData{GueClient: &gue.Client{},
			EmailMaker: makerMock, EmailSender: senderMock, DB: dbMock}}, wantErr: true},
		{name: "Fail maker", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1,
			EmailSender: senderMock, DB: dbMock}}, wantErr: true},
		{name: "Fail sender", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1,
			EmailMaker: makerMock, DB: dbMock}}, wantErr: true},
		{name: "Fail DB", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1,
			EmailMaker: makerMock, EmailSender: senderMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockEmailMaker struct{ mock.Mock }

func (m *mockEmailMaker) Make(data *ainform.Data) (*email.Email, error) {
	args := m.Called(data)
	res, _ := args.Get(0).(*email.Email)
	return res, args.Error(1)
}

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) Send(e *email.Email) error {
	args := m.Called(e)
	return args.Error(0)
}
