package pdu

// Mandatory field names, used only to label decode errors.
const (
	SystemIDFld             = "system_id"
	PasswordFld             = "password"
	SystemTypeFld           = "system_type"
	InterfaceVersionFld     = "interface_version"
	AddrTonFld              = "addr_ton"
	AddrNpiFld              = "addr_npi"
	AddressRangeFld         = "address_range"
	ServiceTypeFld          = "service_type"
	SourceAddrTonFld        = "source_addr_ton"
	SourceAddrNpiFld        = "source_addr_npi"
	SourceAddrFld           = "source_addr"
	DestAddrTonFld          = "dest_addr_ton"
	DestAddrNpiFld          = "dest_addr_npi"
	DestinationAddrFld      = "destination_addr"
	EsmClassFld             = "esm_class"
	ProtocolIDFld           = "protocol_id"
	PriorityFlagFld         = "priority_flag"
	ScheduleDeliveryTimeFld = "schedule_delivery_time"
	ValidityPeriodFld       = "validity_period"
	RegisteredDeliveryFld   = "registered_delivery"
	ReplaceIfPresentFlagFld = "replace_if_present_flag"
	DataCodingFld           = "data_coding"
	SmDefaultMsgIDFld       = "sm_default_msg_id"
	ShortMessageFld         = "short_message"
	MessageIDFld            = "message_id"
)
