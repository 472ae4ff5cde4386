package http

import (
	"encoding/json"
	"time"

	"github.com/chupchat/chupchat-server/internal/core"
	"github.com/chupchat/chupchat-server/internal/proto"
)

func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeCreateRoom:
		var create proto.CreateRoomData
		if err := json.Unmarshal(inbound.Data, &create); err != nil {
			return nil, nil, err
		}
		if create.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandCreateRoom,
			Room:     create.Room,
			Password: create.Password,
		}, nil, nil
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandJoinRoom,
			Room:     join.Room,
			Password: join.Password,
		}, nil, nil
	case proto.InboundTypeLeaveRoom:
		var leave proto.RoomData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandLeaveRoom,
			Room: leave.Room,
		}, nil, nil
	case proto.InboundTypeSendMsg:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		if msg.Payload == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "payload is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Room: msg.Room,
			Message: core.Message{
				// ID is set by the hub after the append.
				Room:      msg.Room,
				From:      client.Name,
				Payload:   msg.Payload,
				CreatedAt: time.Now(),
			},
		}, nil, nil
	case proto.InboundTypeTyping:
		var typing proto.RoomData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandTyping,
			Room: typing.Room,
		}, nil, nil
	case proto.InboundTypeStopTyping:
		var typing proto.RoomData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandStopTyping,
			Room: typing.Room,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomCreated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameRoomCreated,
			Data: proto.EventRoomCreated{
				Room:    event.Room,
				Success: true,
				Members: memberInfos(event.Members),
			},
		}
	case core.EventRoomJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameRoomJoined,
			Data: proto.EventRoomJoined{
				Room:     event.Room,
				Members:  memberInfos(event.Members),
				Messages: eventMessages(event.Messages),
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserJoined,
			Data: proto.EventMembership{
				Room:    event.Room,
				User:    event.User,
				Members: memberInfos(event.Members),
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserLeft,
			Data: proto.EventMembership{
				Room:    event.Room,
				User:    event.User,
				Members: memberInfos(event.Members),
			},
		}
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data: proto.EventMessage{
				ID:      event.Message.ID,
				Room:    event.Message.Room,
				From:    event.Message.From,
				Payload: event.Message.Payload,
				TS:      event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserTyping,
			Data:  proto.EventTyping{Room: event.Room, User: event.User},
		}
	case core.EventUserStoppedTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserStoppedTyping,
			Data:  proto.EventTyping{Room: event.Room, User: event.User},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func memberInfos(in []core.Member) []proto.MemberInfo {
	out := make([]proto.MemberInfo, 0, len(in))
	for _, m := range in {
		out = append(out, proto.MemberInfo{ID: m.ID, Name: m.Name})
	}
	return out
}

func eventMessages(in []core.Message) []proto.EventMessage {
	out := make([]proto.EventMessage, 0, len(in))
	for _, m := range in {
		out = append(out, proto.EventMessage{
			ID:      m.ID,
			Room:    m.Room,
			From:    m.From,
			Payload: m.Payload,
			TS:      m.CreatedAt.Unix(),
		})
	}
	return out
}
